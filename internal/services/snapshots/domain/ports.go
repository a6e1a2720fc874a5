package domain

import (
	"context"
	"time"

	"churnlearn/internal/core/frame"
)

// ReaderPort reads one dated snapshot
// A date with no rows is perr.ErrorCodeNotFound
type ReaderPort interface {
	Read(ctx context.Context, date time.Time) (Snapshot, error)
}

// SourceRepo fetches the raw table of one snapshot date, key and label
// columns included
type SourceRepo interface {
	Fetch(ctx context.Context, date time.Time) (*frame.Frame, error)
}
