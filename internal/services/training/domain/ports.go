package domain

import (
	"context"

	griddom "churnlearn/internal/services/grids/domain"
	modeldom "churnlearn/internal/services/models/domain"
	snapdom "churnlearn/internal/services/snapshots/domain"
)

// RunnerPort runs one training job to completion
type RunnerPort interface {
	Run(ctx context.Context, req RunRequest) (Result, error)
}

// Ports are dependencies injected into the training module
type Ports struct {
	Snapshots snapdom.ReaderPort // required
	Grids     griddom.StorePort  // required
	Models    modeldom.StorePort // required
}
