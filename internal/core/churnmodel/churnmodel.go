// Package churnmodel assembles the churn pipeline and knows how to decode
// persisted ones
package churnmodel

import (
	"churnlearn/internal/core/encoder"
	"churnlearn/internal/core/logit"
	"churnlearn/internal/core/pipeline"
	"churnlearn/internal/core/prep"
)

// Step names; grid files key their options by these
const (
	StepEncoder    = "categorical_encoder"
	StepImputer    = "imputer"
	StepVariance   = "variance_threshold"
	StepClassifier = "classifier"
)

// Template returns the unfit churn pipeline:
// categorical encoder, imputer, variance filter, logistic regression
func Template() *pipeline.Pipeline {
	p, err := pipeline.New(
		pipeline.Named{Name: StepEncoder, Step: encoder.New(encoder.DefaultMaxCategories)},
		pipeline.Named{Name: StepImputer, Step: prep.NewImputer("mean")},
		pipeline.Named{Name: StepVariance, Step: prep.NewVarianceFilter(0)},
		pipeline.Named{Name: StepClassifier, Step: logit.New(logit.DefaultParams())},
	)
	if err != nil {
		panic(err)
	}
	return p
}

// Registry decodes every step kind the template uses
var Registry = pipeline.Registry{
	encoder.Kind:      func() pipeline.Step { return encoder.New(0) },
	prep.ImputerKind:  func() pipeline.Step { return prep.NewImputer("") },
	prep.VarianceKind: func() pipeline.Step { return prep.NewVarianceFilter(0) },
	logit.Kind:        func() pipeline.Step { return logit.New(logit.DefaultParams()) },
}

// Encode serialises a pipeline
func Encode(p *pipeline.Pipeline) ([]byte, error) { return pipeline.Marshal(p) }

// Decode rebuilds a pipeline written by Encode
func Decode(b []byte) (*pipeline.Pipeline, error) { return Registry.Unmarshal(b) }

// Encoder returns the pipeline's categorical encoder
func Encoder(p *pipeline.Pipeline) (*encoder.Encoder, bool) {
	return pipeline.StepAs[*encoder.Encoder](p)
}
