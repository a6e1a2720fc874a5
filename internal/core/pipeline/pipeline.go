package pipeline

import (
	"context"
	"maps"
	"strings"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"
)

// Named pairs a step with its name in the pipeline
type Named struct {
	Name string
	Step Step
}

// Pipeline runs transformers in order and feeds the result to a final
// estimator. A Pipeline is owned by one goroutine; Clone for the next
type Pipeline struct {
	steps []Named
}

// New validates the layout: unique names without "__", transformers first
// and exactly one estimator last
func New(steps ...Named) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, perr.InvalidArgf("pipeline: no steps")
	}
	seen := map[string]struct{}{}
	for i, s := range steps {
		switch {
		case s.Name == "" || strings.Contains(s.Name, "__"):
			return nil, perr.InvalidArgf("pipeline: step %d has invalid name %q", i, s.Name)
		case s.Step == nil:
			return nil, perr.InvalidArgf("pipeline: step %q is nil", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, perr.InvalidArgf("pipeline: duplicate step %q", s.Name)
		}
		seen[s.Name] = struct{}{}

		last := i == len(steps)-1
		if _, ok := s.Step.(Transformer); !last && !ok {
			return nil, perr.InvalidArgf("pipeline: step %q (%s) is not a transformer", s.Name, s.Step.Kind())
		}
		if _, ok := s.Step.(Estimator); last && !ok {
			return nil, perr.InvalidArgf("pipeline: last step %q (%s) is not an estimator", s.Name, s.Step.Kind())
		}
	}
	return &Pipeline{steps: steps}, nil
}

// StepNames returns the step names in order
func (p *Pipeline) StepNames() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name
	}
	return out
}

// Steps returns the named steps; the slice is a copy
func (p *Pipeline) Steps() []Named {
	out := make([]Named, len(p.steps))
	copy(out, p.steps)
	return out
}

// Step returns the step with the given name
func (p *Pipeline) Step(name string) (Step, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s.Step, true
		}
	}
	return nil, false
}

// StepAs returns the first step of type T
func StepAs[T Step](p *Pipeline) (T, bool) {
	for _, s := range p.steps {
		if t, ok := s.Step.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Clone returns an unfit pipeline with the same names and hyper-parameters
func (p *Pipeline) Clone() *Pipeline {
	out := make([]Named, len(p.steps))
	for i, s := range p.steps {
		out[i] = Named{Name: s.Name, Step: s.Step.Clone()}
	}
	return &Pipeline{steps: out}
}

// SetParams applies "<step>__<option>" assignments
func (p *Pipeline) SetParams(params map[string]any) error {
	for key, v := range params {
		step, opt, ok := strings.Cut(key, "__")
		if !ok {
			return perr.InvalidArgf("pipeline: param %q is not <step>__<option>", key)
		}
		s, found := p.Step(step)
		if !found {
			return perr.InvalidArgf("pipeline: param %q names unknown step %q", key, step)
		}
		if err := s.SetParam(opt, v); err != nil {
			return perr.WithField(err, key)
		}
	}
	return nil
}

// Params returns every step's hyper-parameters in "<step>__<option>" form
func (p *Pipeline) Params() map[string]any {
	out := map[string]any{}
	for _, s := range p.steps {
		for k, v := range s.Step.Params() {
			out[s.Name+"__"+k] = v
		}
	}
	return out
}

// Fitted reports whether every step is fitted
func (p *Pipeline) Fitted() bool {
	for _, s := range p.steps {
		if !s.Step.Fitted() {
			return false
		}
	}
	return true
}

// Fit fits each transformer on the output of the previous one and the
// estimator on the last output. ctx is checked between steps
func (p *Pipeline) Fit(ctx context.Context, X *frame.Frame, y []float64) error {
	if len(y) != X.Rows() {
		return perr.InvalidArgf("pipeline: %d labels for %d rows", len(y), X.Rows())
	}
	cur := X
	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch st := s.Step.(type) {
		case Transformer:
			if err := st.Fit(cur); err != nil {
				return perr.WithOp(err, "fit "+s.Name)
			}
			next, err := st.Transform(cur)
			if err != nil {
				return perr.WithOp(err, "transform "+s.Name)
			}
			cur = next
		case Estimator:
			if err := st.Fit(cur, y); err != nil {
				return perr.WithOp(err, "fit "+s.Name)
			}
		}
	}
	return nil
}

// Transform runs X through every transformer
func (p *Pipeline) Transform(X *frame.Frame) (*frame.Frame, error) {
	cur := X
	for _, s := range p.steps[:len(p.steps)-1] {
		next, err := s.Step.(Transformer).Transform(cur)
		if err != nil {
			return nil, perr.WithOp(err, "transform "+s.Name)
		}
		cur = next
	}
	return cur, nil
}

// PredictProba returns the positive-class probability of each row of X
func (p *Pipeline) PredictProba(X *frame.Frame) ([]float64, error) {
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	last := p.steps[len(p.steps)-1]
	out, err := last.Step.(Estimator).PredictProba(Xt)
	if err != nil {
		return nil, perr.WithOp(err, "predict "+last.Name)
	}
	return out, nil
}

// TransformedColumns returns the column names the estimator was fit on,
// taken from the last transformer that reports them
func (p *Pipeline) TransformedColumns() []string {
	for i := len(p.steps) - 2; i >= 0; i-- {
		if oc, ok := p.steps[i].Step.(OutputColumns); ok {
			if cols := oc.OutputColumns(); cols != nil {
				return cols
			}
		}
	}
	return nil
}

// Importances returns the estimator's per-column weights, if it has any
func (p *Pipeline) Importances() map[string]float64 {
	if im, ok := p.steps[len(p.steps)-1].Step.(Importances); ok {
		return maps.Clone(im.Importances())
	}
	return nil
}
