// Package logit is an L2-regularised logistic regression classifier fit with
// L-BFGS. It is the estimator at the end of the churn pipeline
package logit

import (
	"encoding/json"
	"math"
	"slices"

	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Kind is the step kind used in persisted pipelines
const Kind = "logistic_regression"

// Params are the hyper-parameters; C is the inverse regularisation strength
type Params struct {
	C            float64 `json:"C"`
	MaxIter      int     `json:"max_iter"`
	Tol          float64 `json:"tol"`
	ClassWeight  string  `json:"class_weight"`
	FitIntercept bool    `json:"fit_intercept"`
}

// DefaultParams mirrors the usual library defaults
func DefaultParams() Params {
	return Params{C: 1, MaxIter: 100, Tol: 1e-4, FitIntercept: true}
}

// Model is a pipeline.Estimator
// Features are standardised internally; the stored coefficients apply to
// standardised inputs and Coefficients maps them back to raw units
type Model struct {
	p Params

	columns []string
	mean    []float64
	scale   []float64
	coef    []float64
	bias    float64
	iters   int
}

// New returns an unfit model
func New(p Params) *Model { return &Model{p: p} }

func (m *Model) Kind() string { return Kind }

func (m *Model) SetParam(name string, v any) error {
	var err error
	switch name {
	case "C":
		var c float64
		if c, err = pipeline.Float(name, v); err == nil {
			if c <= 0 {
				return perr.InvalidArgf("%s: C must be > 0, got %v", Kind, c)
			}
			m.p.C = c
		}
	case "max_iter":
		var n int
		if n, err = pipeline.Int(name, v); err == nil {
			if n < 1 {
				return perr.InvalidArgf("%s: max_iter must be >= 1, got %d", Kind, n)
			}
			m.p.MaxIter = n
		}
	case "tol":
		var t float64
		if t, err = pipeline.Float(name, v); err == nil {
			if t <= 0 {
				return perr.InvalidArgf("%s: tol must be > 0, got %v", Kind, t)
			}
			m.p.Tol = t
		}
	case "class_weight":
		var s string
		if s, err = pipeline.String(name, v); err == nil {
			if s != "" && s != "balanced" {
				return perr.InvalidArgf("%s: class_weight must be empty or balanced, got %q", Kind, s)
			}
			m.p.ClassWeight = s
		}
	case "fit_intercept":
		m.p.FitIntercept, err = pipeline.Bool(name, v)
	default:
		return pipeline.UnknownParam(Kind, name)
	}
	return err
}

func (m *Model) Params() map[string]any {
	return map[string]any{
		"C":             m.p.C,
		"max_iter":      m.p.MaxIter,
		"tol":           m.p.Tol,
		"class_weight":  m.p.ClassWeight,
		"fit_intercept": m.p.FitIntercept,
	}
}

func (m *Model) Clone() pipeline.Step { return &Model{p: m.p} }

func (m *Model) Fitted() bool { return m.coef != nil }

// Iterations is the number of optimiser iterations of the last fit
func (m *Model) Iterations() int { return m.iters }

// Fit learns coefficients from X and labels y in {0, 1}
func (m *Model) Fit(X *frame.Frame, y []float64) error {
	if len(y) != X.Rows() {
		return perr.InvalidArgf("%s: %d labels for %d rows", Kind, len(y), X.Rows())
	}
	var pos float64
	for i, v := range y {
		if v != 0 && v != 1 {
			return perr.InvalidArgf("%s: label %d is %v, want 0 or 1", Kind, i, v)
		}
		pos += v
	}
	n := float64(len(y))
	if pos == 0 || pos == n {
		return perr.Newf(perr.ErrorCodeValidation, "%s: training labels hold a single class", Kind)
	}

	A, err := X.Matrix()
	if err != nil {
		return err
	}
	rows, p := A.Dims()

	mean := make([]float64, p)
	scale := make([]float64, p)
	col := make([]float64, rows)
	for j := range p {
		mat.Col(col, j, A)
		if slices.ContainsFunc(col, math.IsNaN) {
			return perr.InvalidArgf("%s: column %q has missing values", Kind, X.At(j).Name)
		}
		mu, sd := stat.PopMeanStdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		mean[j], scale[j] = mu, sd
		for i := range col {
			col[i] = (col[i] - mu) / sd
		}
		A.SetCol(j, col)
	}

	w := make([]float64, rows)
	for i, v := range y {
		w[i] = 1
		if m.p.ClassWeight == "balanced" {
			if v == 1 {
				w[i] = n / (2 * pos)
			} else {
				w[i] = n / (2 * (n - pos))
			}
		}
	}

	obj := &objective{A: A, y: y, w: w, c: m.p.C, intercept: m.p.FitIntercept}
	settings := &optimize.Settings{
		MajorIterations:   m.p.MaxIter,
		GradientThreshold: m.p.Tol,
		Converger:         &optimize.FunctionConverge{Absolute: 1e-12, Relative: 1e-10, Iterations: 20},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: obj.fn, Grad: obj.grad}, make([]float64, p+1), settings, &optimize.LBFGS{})
	if res == nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: optimiser failed", Kind)
	}
	if !floats.HasNaN(res.X) && !math.IsInf(res.F, 0) {
		err = nil
	}
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "%s: optimiser failed", Kind)
	}

	m.columns = X.Names()
	m.mean, m.scale = mean, scale
	m.coef = slices.Clone(res.X[:p])
	m.bias = res.X[p]
	m.iters = res.MajorIterations
	return nil
}

// PredictProba returns P(y=1) per row
func (m *Model) PredictProba(X *frame.Frame) ([]float64, error) {
	if m.coef == nil {
		return nil, perr.NotFittedf("%s: predict called before fit", Kind)
	}
	if !slices.Equal(X.Names(), m.columns) {
		return nil, perr.SchemaDriftf("%s: got columns %v, fitted on %v", Kind, X.Names(), m.columns)
	}
	out := make([]float64, X.Rows())
	for i := range out {
		z := m.bias
		for j := range m.coef {
			x := X.At(j).Num[i]
			if math.IsNaN(x) {
				return nil, perr.InvalidArgf("%s: row %d column %q is missing", Kind, i, m.columns[j])
			}
			z += m.coef[j] * (x - m.mean[j]) / m.scale[j]
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

// Coefficients returns the per-column weights in raw feature units and the
// matching intercept
func (m *Model) Coefficients() (map[string]float64, float64) {
	if m.coef == nil {
		return nil, 0
	}
	out := make(map[string]float64, len(m.coef))
	b := m.bias
	for j, name := range m.columns {
		out[name] = m.coef[j] / m.scale[j]
		b -= m.coef[j] * m.mean[j] / m.scale[j]
	}
	return out, b
}

// Importances implements pipeline.Importances: the magnitude of each
// standardised coefficient
func (m *Model) Importances() map[string]float64 {
	if m.coef == nil {
		return nil
	}
	out := make(map[string]float64, len(m.coef))
	for j, name := range m.columns {
		out[name] = math.Abs(m.coef[j])
	}
	return out
}

type state struct {
	Params  Params    `json:"params"`
	Columns []string  `json:"columns,omitempty"`
	Mean    []float64 `json:"mean,omitempty"`
	Scale   []float64 `json:"scale,omitempty"`
	Coef    []float64 `json:"coef,omitempty"`
	Bias    float64   `json:"bias"`
	Iters   int       `json:"iterations,omitempty"`
}

func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(state{Params: m.p, Columns: m.columns, Mean: m.mean, Scale: m.scale, Coef: m.coef, Bias: m.bias, Iters: m.iters})
}

func (m *Model) UnmarshalJSON(b []byte) error {
	st := state{Params: DefaultParams()}
	if err := json.Unmarshal(b, &st); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, Kind+": decode state")
	}
	p := len(st.Coef)
	if len(st.Columns) != p || len(st.Mean) != p || len(st.Scale) != p {
		return perr.JSONErrf("%s: inconsistent state lengths", Kind)
	}
	*m = Model{p: st.Params, columns: st.Columns, mean: st.Mean, scale: st.Scale, coef: st.Coef, bias: st.Bias, iters: st.Iters}
	return nil
}
