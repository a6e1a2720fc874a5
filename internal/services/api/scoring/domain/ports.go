package domain

import "context"

// ServicePort defines the service contract for model scoring
type ServicePort interface {
	List(ctx context.Context) ([]ModelSummary, error)
	Describe(ctx context.Context, key string) (ModelInfo, error)
	Score(ctx context.Context, key string, in ScoreInput) (ScoreOutput, error)
}
