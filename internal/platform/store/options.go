package store

import (
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/store/pg"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger pg and ch report through
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithQueryTracer sees every pg statement, LogSQL or not. Tracers run in the
// order they were added, after the SQL log
func WithQueryTracer(t pg.QueryTracer) Option {
	return func(s *Store) error {
		if t != nil {
			s.tracers = append(s.tracers, t)
		}
		return nil
	}
}
