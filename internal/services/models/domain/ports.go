package domain

import "context"

// StorePort persists and loads fitted models
type StorePort interface {
	// Save writes the whole model or nothing; an existing key is replaced
	Save(ctx context.Context, m StoredModel) error
	// Load returns perr.ErrorCodeNotFound for an unknown key
	Load(ctx context.Context, key string) (StoredModel, error)
	// List returns metadata of every model, newest first, without pipelines
	List(ctx context.Context) ([]StoredModel, error)
}

// StorageRepo stores records
type StorageRepo interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, key string) (Record, error)
	List(ctx context.Context) ([]Record, error)
}
