// Package domain declares the grid store port
package domain

import (
	"context"

	"churnlearn/internal/core/grid"
)

// StorePort loads named parameter grids
// An unknown key is perr.ErrorCodeNotFound; a malformed grid is
// perr.ErrorCodeConfiguration
type StorePort interface {
	Load(ctx context.Context, key string) (grid.Grid, error)
}
