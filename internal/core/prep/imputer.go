package prep

import (
	"encoding/json"
	"math"
	"slices"

	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"

	"gonum.org/v1/gonum/stat"
)

// ImputerKind is the step kind used in persisted pipelines
const ImputerKind = "imputer"

// Imputer fills NaN cells of numeric frames with a per-column statistic
// learned at fit time. A column that is all NaN fills with 0
type Imputer struct {
	strategy string
	columns  []string
	fill     []float64
}

// NewImputer returns an unfit imputer; strategy is "mean" or "median"
func NewImputer(strategy string) *Imputer {
	if strategy == "" {
		strategy = "mean"
	}
	return &Imputer{strategy: strategy}
}

func (m *Imputer) Kind() string { return ImputerKind }

func (m *Imputer) SetParam(name string, v any) error {
	if name != "strategy" {
		return pipeline.UnknownParam(ImputerKind, name)
	}
	s, err := pipeline.String(name, v)
	if err != nil {
		return err
	}
	if s != "mean" && s != "median" {
		return perr.InvalidArgf("%s: strategy must be mean or median, got %q", ImputerKind, s)
	}
	m.strategy = s
	return nil
}

func (m *Imputer) Params() map[string]any { return map[string]any{"strategy": m.strategy} }

func (m *Imputer) Clone() pipeline.Step { return &Imputer{strategy: m.strategy} }

func (m *Imputer) Fitted() bool { return m.columns != nil }

// OutputColumns implements pipeline.OutputColumns
func (m *Imputer) OutputColumns() []string { return slices.Clone(m.columns) }

// Fit learns one fill value per column
func (m *Imputer) Fit(X *frame.Frame) error {
	cols := X.Names()
	fill := make([]float64, len(cols))
	for j := range cols {
		c := X.At(j)
		if c.Kind != frame.Numeric {
			return perr.InvalidArgf("%s: column %q is %s, want numeric", ImputerKind, c.Name, c.Kind)
		}
		fill[j] = m.statistic(c.Num)
	}
	m.columns, m.fill = cols, fill
	return nil
}

func (m *Imputer) statistic(v []float64) float64 {
	obs := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			obs = append(obs, x)
		}
	}
	if len(obs) == 0 {
		return 0
	}
	if m.strategy == "median" {
		slices.Sort(obs)
		n := len(obs)
		if n%2 == 1 {
			return obs[n/2]
		}
		return (obs[n/2-1] + obs[n/2]) / 2
	}
	return stat.Mean(obs, nil)
}

// Transform returns a copy of X with NaN cells filled
// X must carry exactly the fitted columns in the fitted order
func (m *Imputer) Transform(X *frame.Frame) (*frame.Frame, error) {
	if m.columns == nil {
		return nil, perr.NotFittedf("%s: transform called before fit", ImputerKind)
	}
	if !slices.Equal(X.Names(), m.columns) {
		return nil, perr.SchemaDriftf("%s: got columns %v, fitted on %v", ImputerKind, X.Names(), m.columns)
	}
	out := make([]frame.Column, len(m.columns))
	for j, name := range m.columns {
		src := X.At(j).Num
		v := make([]float64, len(src))
		for i, x := range src {
			if math.IsNaN(x) {
				x = m.fill[j]
			}
			v[i] = x
		}
		out[j] = frame.NumericColumn(name, v)
	}
	if len(out) == 0 {
		return frame.Empty(X.Rows()), nil
	}
	return frame.New(out...)
}

type imputerState struct {
	Strategy string    `json:"strategy"`
	Columns  []string  `json:"columns,omitempty"`
	Fill     []float64 `json:"fill,omitempty"`
}

func (m *Imputer) MarshalJSON() ([]byte, error) {
	return json.Marshal(imputerState{Strategy: m.strategy, Columns: m.columns, Fill: m.fill})
}

func (m *Imputer) UnmarshalJSON(b []byte) error {
	var st imputerState
	if err := json.Unmarshal(b, &st); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, ImputerKind+": decode state")
	}
	if len(st.Columns) != len(st.Fill) {
		return perr.JSONErrf("%s: %d columns but %d fill values", ImputerKind, len(st.Columns), len(st.Fill))
	}
	*m = Imputer{strategy: st.Strategy, columns: st.Columns, fill: st.Fill}
	if m.strategy == "" {
		m.strategy = "mean"
	}
	return nil
}
