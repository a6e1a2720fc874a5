// Package domain holds training run types
package domain

import (
	"fmt"
	"time"

	"churnlearn/internal/core/grid"
	"churnlearn/internal/core/metrics"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"
)

// Phase of a training run
type Phase string

// Phases in the order a run passes through them
const (
	PhaseInitialized    Phase = "initialized"
	PhaseGroupsAssigned Phase = "groups_assigned"
	PhaseSearching      Phase = "searching"
	PhaseBestFound      Phase = "best_found"
	PhaseRefittingFinal Phase = "refitting_final"
	PhaseDone           Phase = "done"
)

// Class buckets run failures for exit codes and metrics
type Class string

// Failure classes
const (
	ClassConfiguration Class = "configuration"
	ClassUpstream      Class = "upstream"
	ClassInternal      Class = "internal"
)

// RunError is the single terminal error of a failed run
type RunError struct {
	Phase Phase
	Class Class
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("training %s failed (%s): %v", e.Phase, e.Class, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Classify maps an error to its failure class
func Classify(err error) Class {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeConfiguration, perr.ErrorCodeValidation, perr.ErrorCodeInvalidArgument:
		return ClassConfiguration
	case perr.ErrorCodeUnavailable, perr.ErrorCodeNotFound, perr.ErrorCodeDB:
		return ClassUpstream
	}
	if perr.Retryable(err) {
		return ClassUpstream
	}
	return ClassInternal
}

// RunRequest configures one training run
// Snapshot dates are OutcomeDate, OutcomeDate-Offset, ... (Snapshots of them)
type RunRequest struct {
	OutcomeDate time.Time `json:"outcome_date" validate:"required"`
	Snapshots   int       `json:"snapshots" validate:"min=3"`
	Offset      int       `json:"offset" validate:"min=1"`
	Window      int       `json:"window" validate:"min=1,ltfield=Snapshots"`
	Budget      int       `json:"budget" validate:"min=0"`
	Grid        string    `json:"grid" validate:"required"`
	ModelKey    string    `json:"model_key" validate:"required"`
	Scoring     string    `json:"scoring" validate:"required,scorer"`
	Seed        uint64    `json:"seed"`
	Workers     int       `json:"workers" validate:"min=0"`
}

// Dates returns the snapshot dates, oldest first
func (r RunRequest) Dates() []time.Time {
	out := make([]time.Time, r.Snapshots)
	for i := range r.Snapshots {
		out[r.Snapshots-1-i] = r.OutcomeDate.AddDate(0, 0, -r.Offset*i)
	}
	return out
}

// CandidateResult is the validation record of one configuration
type CandidateResult struct {
	Index      int            `json:"index"`
	Params     grid.Candidate `json:"params"`
	FoldScores []float64      `json:"fold_scores"`
	Mean       float64        `json:"mean"`
}

// Report evaluates the winning configuration on the newest fold, fit on
// that fold's training rows only. A metric the fold cannot support, such as
// roc_auc on single-class rows, stays nil
type Report struct {
	Fold           int                `json:"fold"`
	ROCAUC         *float64           `json:"roc_auc,omitempty"`
	PrecisionAt10  *float64           `json:"precision_at_10,omitempty"`
	Threshold      float64            `json:"threshold"`
	Confusion      *metrics.Confusion `json:"confusion,omitempty"`
	TopImportances []Importance       `json:"top_importances"`
}

// Importance of one transformed column in the final model
type Importance struct {
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// Result of a successful run
type Result struct {
	RunID     string
	ModelKey  string
	CreatedAt time.Time

	Scoring    string
	Score      float64
	FoldScores []float64
	Params     map[string]any
	Candidates []CandidateResult
	// Best indexes Candidates
	Best int

	Dates        []time.Time
	Window       int
	Folds        int
	Rows         int
	FinalRows    int
	DroppedSteps []string

	Report Report

	Pipeline *pipeline.Pipeline
}
