// Package encoder one-hot encodes categorical columns against a vocabulary
// learned once at fit time, so every later batch yields the same columns in
// the same order
package encoder

import (
	"cmp"
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"

	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"
)

// Kind is the step kind used in persisted pipelines
const Kind = "categorical_encoder"

// DefaultMaxCategories bounds the retained values per column
const DefaultMaxCategories = 15

// Encoder is a pipeline.Transformer. An unfit encoder only carries its
// max_categories; Fit installs a fresh Vocabulary and never edits an old one
type Encoder struct {
	maxCategories int
	vocab         *Vocabulary
}

// New returns an unfit encoder; maxCategories < 1 means the default
func New(maxCategories int) *Encoder {
	if maxCategories < 1 {
		maxCategories = DefaultMaxCategories
	}
	return &Encoder{maxCategories: maxCategories}
}

// Kind implements pipeline.Step
func (e *Encoder) Kind() string { return Kind }

// MaxCategories returns the retention bound
func (e *Encoder) MaxCategories() int { return e.maxCategories }

// SetParam implements pipeline.Step
func (e *Encoder) SetParam(name string, v any) error {
	if name != "max_categories" {
		return pipeline.UnknownParam(Kind, name)
	}
	n, err := pipeline.Int(name, v)
	if err != nil {
		return err
	}
	if n < 1 {
		return perr.InvalidArgf("%s: max_categories must be >= 1, got %d", Kind, n)
	}
	e.maxCategories = n
	return nil
}

// Params implements pipeline.Step
func (e *Encoder) Params() map[string]any {
	return map[string]any{"max_categories": e.maxCategories}
}

// Clone implements pipeline.Step
func (e *Encoder) Clone() pipeline.Step { return &Encoder{maxCategories: e.maxCategories} }

// Fitted implements pipeline.Step
func (e *Encoder) Fitted() bool { return e.vocab != nil }

// Vocabulary returns the fitted snapshot, or nil before Fit
func (e *Encoder) Vocabulary() *Vocabulary { return e.vocab }

// OutputColumns implements pipeline.OutputColumns
func (e *Encoder) OutputColumns() []string {
	if e.vocab == nil {
		return nil
	}
	return e.vocab.Columns()
}

// Fit learns the vocabulary of every categorical column of X
// A frame without categorical columns fits to a pass-through
func (e *Encoder) Fit(X *frame.Frame) error {
	sources := make([]Source, 0, X.Width())
	for i := range X.Width() {
		c := X.At(i)
		s := Source{Name: c.Name, Kind: c.Kind}
		if c.Kind == frame.Categorical {
			s.Retained = topValues(c, e.maxCategories)
		}
		sources = append(sources, s)
	}

	v := newVocabulary(sources)
	seen := make(map[string]struct{}, len(v.columns))
	for _, name := range v.columns {
		if _, dup := seen[name]; dup {
			return perr.InvalidArgf("%s: output column %q is produced twice", Kind, name)
		}
		seen[name] = struct{}{}
	}
	e.vocab = v
	return nil
}

// topValues returns up to max most frequent non-null values of c, ties by
// value ascending, then sorted ascending. The bucket names are never kept
func topValues(c frame.Column, max int) []string {
	counts := map[string]int{}
	for i, s := range c.Str {
		if c.IsNull(i) || s == OtherSuffix || s == MissingSuffix {
			continue
		}
		counts[s]++
	}
	vals := slices.Collect(maps.Keys(counts))
	slices.SortFunc(vals, func(a, b string) int {
		if d := cmp.Compare(counts[b], counts[a]); d != 0 {
			return d
		}
		return cmp.Compare(a, b)
	})
	if len(vals) > max {
		vals = vals[:max]
	}
	slices.Sort(vals)
	return vals
}

// Transform encodes X against the fitted vocabulary. X is never modified
// Unknown values count as other, nulls as missing, source columns X lacks
// are zero-filled and columns the vocabulary does not know are dropped
func (e *Encoder) Transform(X *frame.Frame) (*frame.Frame, error) {
	if e.vocab == nil {
		return nil, perr.NotFittedf("%s: transform called before fit", Kind)
	}
	n := X.Rows()
	out := make([]frame.Column, 0, len(e.vocab.columns))

	for _, s := range e.vocab.sources {
		c, present := X.Col(s.Name)

		if s.Kind == frame.Numeric {
			out = append(out, frame.NumericColumn(s.Name, numericCells(c, present, n)))
			continue
		}

		width := len(s.Retained) + 2
		block := make([][]float64, width)
		for k := range block {
			block[k] = make([]float64, n)
		}
		if present {
			for r := range n {
				val, null := textCell(c, r)
				block[e.vocab.slot(s, val, null)][r] = 1
			}
		}
		for k, val := range s.Retained {
			out = append(out, frame.NumericColumn(s.Name+"_"+val, block[k]))
		}
		out = append(out,
			frame.NumericColumn(s.Name+"_"+OtherSuffix, block[width-2]),
			frame.NumericColumn(s.Name+"_"+MissingSuffix, block[width-1]),
		)
	}

	if len(out) == 0 {
		return frame.Empty(n), nil
	}
	return frame.New(out...)
}

// FitTransform fits on X and encodes it
func (e *Encoder) FitTransform(X *frame.Frame) (*frame.Frame, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// CheckSchema reports the fitted source columns X lacks as a schema drift
// error. Transform zero-fills those instead, which is right inside a fold
// but hides drift in production data
func (e *Encoder) CheckSchema(X *frame.Frame) error {
	if e.vocab == nil {
		return perr.NotFittedf("%s: schema check before fit", Kind)
	}
	var missing []string
	for _, s := range e.vocab.sources {
		if _, ok := X.Col(s.Name); !ok {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) > 0 {
		return perr.SchemaDriftf("%s: input lacks fitted columns %v", Kind, missing)
	}
	return nil
}

func numericCells(c frame.Column, present bool, n int) []float64 {
	out := make([]float64, n)
	switch {
	case !present:
	case c.Kind == frame.Numeric:
		copy(out, c.Num)
	default:
		for r := range n {
			if c.IsNull(r) {
				out[r] = math.NaN()
				continue
			}
			if f, ok := frame.ParseCell(c.Str[r]); ok {
				out[r] = f
			} else {
				out[r] = math.NaN()
			}
		}
	}
	return out
}

func textCell(c frame.Column, r int) (string, bool) {
	if c.IsNull(r) {
		return "", true
	}
	if c.Kind == frame.Numeric {
		return strconv.FormatFloat(c.Num[r], 'g', -1, 64), false
	}
	return c.Str[r], false
}

type state struct {
	MaxCategories int             `json:"max_categories"`
	Vocabulary    *vocabularyJSON `json:"vocabulary,omitempty"`
}

// MarshalJSON implements pipeline.Step
func (e *Encoder) MarshalJSON() ([]byte, error) {
	st := state{MaxCategories: e.maxCategories}
	if e.vocab != nil {
		st.Vocabulary = &vocabularyJSON{Sources: e.vocab.sources, Columns: e.vocab.columns}
	}
	return json.Marshal(st)
}

// UnmarshalJSON implements pipeline.Step
// The stored column order must match what the sources rebuild
func (e *Encoder) UnmarshalJSON(b []byte) error {
	var st state
	if err := json.Unmarshal(b, &st); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, Kind+": decode state")
	}
	e.maxCategories = st.MaxCategories
	if e.maxCategories < 1 {
		e.maxCategories = DefaultMaxCategories
	}
	e.vocab = nil
	if st.Vocabulary == nil {
		return nil
	}
	v := newVocabulary(st.Vocabulary.Sources)
	if !slices.Equal(v.columns, st.Vocabulary.Columns) {
		return perr.SchemaDriftf("%s: stored columns do not match stored vocabulary", Kind)
	}
	e.vocab = v
	return nil
}
