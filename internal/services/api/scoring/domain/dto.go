// Package domain holds DTOs for the model scoring http and service contracts
package domain

import "time"

// ModelSummary is one persisted model as listed
type ModelSummary struct {
	Key       string    `json:"key"        example:"weekly"`
	RunID     string    `json:"run_id"     example:"1f0c8a4e-8d7e-4a4f-9d55-2f3b7c1f0a9e"`
	CreatedAt time.Time `json:"created_at" example:"2018-01-29T06:00:00Z"`
	Scoring   string    `json:"scoring"    example:"roc_auc"`
	Score     float64   `json:"score"      example:"0.81"`
}

// Source is an input column the model was fit on; Retained lists the
// categorical values that got their own indicator column
type Source struct {
	Name     string   `json:"name"               example:"plan"`
	Kind     string   `json:"kind"               example:"categorical"`
	Retained []string `json:"retained,omitempty"`
}

// ModelInfo describes a persisted model and the schema it expects
type ModelInfo struct {
	ModelSummary
	FoldScores []float64      `json:"fold_scores"`
	Params     map[string]any `json:"params"`
	Window     int            `json:"window" example:"4"`
	Folds      int            `json:"folds"  example:"2"`
	Steps      []string       `json:"steps"`
	Sources    []Source       `json:"sources"`
	Columns    []string       `json:"columns"`
}

// ScoreInput carries the rows to score. Each row maps a column name to a
// number, string, bool or null; KeyColumn, when set, names a column echoed
// back with each probability and never fed to the model
type ScoreInput struct {
	Rows      []map[string]any `json:"rows"                 validate:"required,min=1,max=5000"`
	KeyColumn string           `json:"key_column,omitempty" validate:"omitempty,max=128" example:"customer_id"`
}

// Score is one row's churn probability
type Score struct {
	Key         string  `json:"key,omitempty" example:"c-1042"`
	Probability float64 `json:"probability"   example:"0.37"`
}

// ScoreOutput is the scored batch
type ScoreOutput struct {
	Model  string  `json:"model"  example:"weekly"`
	RunID  string  `json:"run_id"`
	Scores []Score `json:"scores"`
}
