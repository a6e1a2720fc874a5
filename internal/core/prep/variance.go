package prep

import (
	"encoding/json"
	"slices"

	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"

	"gonum.org/v1/gonum/stat"
)

// VarianceKind is the step kind used in persisted pipelines
const VarianceKind = "variance_threshold"

// VarianceFilter drops numeric columns whose population variance at fit time
// is not above the threshold. Constant columns go with the default of 0
type VarianceFilter struct {
	threshold float64
	input     []string
	keep      []string
}

// NewVarianceFilter returns an unfit filter
func NewVarianceFilter(threshold float64) *VarianceFilter {
	return &VarianceFilter{threshold: threshold}
}

func (v *VarianceFilter) Kind() string { return VarianceKind }

func (v *VarianceFilter) SetParam(name string, val any) error {
	if name != "threshold" {
		return pipeline.UnknownParam(VarianceKind, name)
	}
	f, err := pipeline.Float(name, val)
	if err != nil {
		return err
	}
	if f < 0 {
		return perr.InvalidArgf("%s: threshold must be >= 0, got %v", VarianceKind, f)
	}
	v.threshold = f
	return nil
}

func (v *VarianceFilter) Params() map[string]any { return map[string]any{"threshold": v.threshold} }

func (v *VarianceFilter) Clone() pipeline.Step { return &VarianceFilter{threshold: v.threshold} }

func (v *VarianceFilter) Fitted() bool { return v.keep != nil }

// OutputColumns implements pipeline.OutputColumns
func (v *VarianceFilter) OutputColumns() []string { return slices.Clone(v.keep) }

// Fit selects the columns to keep; keeping none is an error
func (v *VarianceFilter) Fit(X *frame.Frame) error {
	keep := make([]string, 0, X.Width())
	for j := range X.Width() {
		c := X.At(j)
		if c.Kind != frame.Numeric {
			return perr.InvalidArgf("%s: column %q is %s, want numeric", VarianceKind, c.Name, c.Kind)
		}
		if len(c.Num) == 0 {
			continue
		}
		_, variance := stat.PopMeanVariance(c.Num, nil)
		if variance > v.threshold {
			keep = append(keep, c.Name)
		}
	}
	if len(keep) == 0 {
		return perr.InvalidArgf("%s: no column has variance above %v", VarianceKind, v.threshold)
	}
	v.input, v.keep = X.Names(), keep
	return nil
}

// Transform selects the kept columns
func (v *VarianceFilter) Transform(X *frame.Frame) (*frame.Frame, error) {
	if v.keep == nil {
		return nil, perr.NotFittedf("%s: transform called before fit", VarianceKind)
	}
	if !slices.Equal(X.Names(), v.input) {
		return nil, perr.SchemaDriftf("%s: got columns %v, fitted on %v", VarianceKind, X.Names(), v.input)
	}
	return X.Select(v.keep...)
}

type varianceState struct {
	Threshold float64  `json:"threshold"`
	Input     []string `json:"input,omitempty"`
	Keep      []string `json:"keep,omitempty"`
}

func (v *VarianceFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(varianceState{Threshold: v.threshold, Input: v.input, Keep: v.keep})
}

func (v *VarianceFilter) UnmarshalJSON(b []byte) error {
	var st varianceState
	if err := json.Unmarshal(b, &st); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, VarianceKind+": decode state")
	}
	*v = VarianceFilter{threshold: st.Threshold, input: st.Input, keep: st.Keep}
	return nil
}
