// Package service reads dated snapshots through a paced, retried source
package service

import (
	"context"
	"time"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/retry"
	"churnlearn/internal/services/snapshots/domain"

	"golang.org/x/time/rate"
)

// Config for the snapshot reader
type Config struct {
	Columns domain.Columns
	Retry   retry.Policy

	// QPS paces source reads; zero disables pacing
	QPS   float64
	Burst int
}

// Service implements domain.ReaderPort
type Service struct {
	src     domain.SourceRepo
	cfg     Config
	limiter *rate.Limiter
}

// New constructs a snapshot reader over src
func New(src domain.SourceRepo, cfg Config) *Service {
	s := &Service{src: src, cfg: cfg}
	if cfg.QPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.QPS), max(1, cfg.Burst))
	}
	return s
}

// Read implements domain.ReaderPort
func (s *Service) Read(ctx context.Context, date time.Time) (domain.Snapshot, error) {
	day := date.Format(time.DateOnly)
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.Snapshot{}, err
		}
	}

	start := time.Now()
	raw, err := retry.Value(ctx, s.cfg.Retry, "snapshot "+day, func(ctx context.Context) (*frame.Frame, error) {
		return s.src.Fetch(ctx, date)
	})
	if err != nil {
		return domain.Snapshot{}, perr.WithOp(err, "read snapshot "+day)
	}
	if raw == nil || raw.Rows() == 0 {
		return domain.Snapshot{}, perr.NotFoundf("snapshot %s has no rows", day)
	}

	snap, err := Build(date, raw, s.cfg.Columns)
	if err != nil {
		return domain.Snapshot{}, perr.WithOp(err, "read snapshot "+day)
	}
	if snap.Len() == 0 {
		return domain.Snapshot{}, perr.NotFoundf("snapshot %s has no eligible rows", day)
	}
	logger.C(ctx).Debug().
		Str("date", day).
		Int("rows", raw.Rows()).
		Int("eligible", snap.Len()).
		Int("features", snap.Features.Width()).
		Dur("took", time.Since(start)).
		Msg("snapshot read")
	return snap, nil
}
