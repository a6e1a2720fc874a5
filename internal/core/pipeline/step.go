// Package pipeline composes named fit/transform steps into one estimator that
// a parameter search can clone, configure and fit as a unit
package pipeline

import (
	"encoding/json"

	"churnlearn/internal/core/frame"
)

// Step is the capability every pipeline step shares
// State round-trips through JSON so a fitted pipeline can be persisted
type Step interface {
	json.Marshaler
	json.Unmarshaler

	// Kind names the step implementation, e.g. "categorical_encoder"
	Kind() string
	// SetParam sets one hyper-parameter; unknown names are an error
	SetParam(name string, v any) error
	// Params returns the current hyper-parameters
	Params() map[string]any
	// Clone returns an unfit copy with the same hyper-parameters
	Clone() Step
	// Fitted reports whether the step holds learned state
	Fitted() bool
}

// Transformer is a step that learns from X alone and rewrites frames
type Transformer interface {
	Step
	Fit(X *frame.Frame) error
	Transform(X *frame.Frame) (*frame.Frame, error)
}

// Estimator is the final step; it learns from X and binary labels y and
// returns the positive-class probability per row
type Estimator interface {
	Step
	Fit(X *frame.Frame, y []float64) error
	PredictProba(X *frame.Frame) ([]float64, error)
}

// OutputColumns is implemented by transformers that can report their fitted
// output schema without seeing data
type OutputColumns interface {
	OutputColumns() []string
}

// Importances is implemented by estimators that expose per-column weights
type Importances interface {
	Importances() map[string]float64
}
