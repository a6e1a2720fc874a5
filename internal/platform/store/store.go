// Package store opens the optional SQL backends snapshots and the model
// registry read from, and hands repos narrow query seams over them
package store

import (
	"context"
	"errors"
	"fmt"

	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/store/pg"
)

// Store holds whichever backends Config enabled; a nil seam means disabled
type Store struct {
	Log logger.Logger

	// PG backs the model registry and snapshot tables
	PG TxRunner
	// CH is the snapshot warehouse
	CH Clickhouse

	tracers []pg.QueryTracer
}

// Row is what a single-row scan needs
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set; Columns is in select order
type Rows interface {
	Row
	Next() bool
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the SQL surface repos are written against
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn inside one transaction, committing when fn returns nil
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse reads snapshot tables and appends rows in batches
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Pinger reports readiness; meta/ready and Guard use it
type Pinger interface{ Ping(context.Context) error }

// Open connects every backend enabled in cfg. A failure closes what was
// already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	s.Log = s.Log.With().Str("component", "store").Logger()

	if cfg.PG.Enabled {
		p, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = p
	}
	if cfg.CH.Enabled {
		c, err := openCH(ctx, cfg, s)
		if err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
		s.CH = c
	}
	return s, nil
}

type namedSeam struct {
	name string
	seam any
}

func (s *Store) seams() []namedSeam {
	var out []namedSeam
	if s.PG != nil {
		out = append(out, namedSeam{"pg", s.PG})
	}
	if s.CH != nil {
		out = append(out, namedSeam{"ch", s.CH})
	}
	return out
}

// Guard pings every open backend and joins the failures, each prefixed
// with the backend name
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, b := range s.seams() {
		p, ok := b.seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases backends in reverse open order
func (s *Store) Close(context.Context) error {
	var errs []error
	bs := s.seams()
	for i := len(bs) - 1; i >= 0; i-- {
		switch c := bs[i].seam.(type) {
		case interface{ Close() error }:
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", bs[i].name, err))
			}
		case interface{ Close() }:
			c.Close()
		}
	}
	return errors.Join(errs...)
}
