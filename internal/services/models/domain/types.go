// Package domain holds persisted model types
package domain

import (
	"regexp"
	"time"

	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"
)

// StoredModel is a fitted pipeline plus the search that produced it
type StoredModel struct {
	Key       string
	RunID     string
	CreatedAt time.Time

	// Score is the winner's mean validation score under Scoring
	Scoring    string
	Score      float64
	FoldScores []float64
	Params     map[string]any

	Window int
	Folds  int

	Pipeline *pipeline.Pipeline
}

// Record is a StoredModel as it rests in a repo: the pipeline is an opaque
// compressed blob
type Record struct {
	Key        string         `json:"key"`
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Scoring    string         `json:"scoring"`
	Score      float64        `json:"score"`
	FoldScores []float64      `json:"fold_scores"`
	Params     map[string]any `json:"params"`
	Window     int            `json:"window"`
	Folds      int            `json:"folds"`
	Blob       []byte         `json:"pipeline,omitempty"`
}

var keyRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey checks a model key; keys double as file names
func ValidKey(key string) error {
	if !keyRE.MatchString(key) {
		return perr.InvalidArgf("invalid model key %q", key)
	}
	return nil
}
