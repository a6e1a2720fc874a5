// Package repo provides snapshot sources backed by Postgres, ClickHouse and
// dated CSV directories
package repo

import (
	"context"
	"errors"
	"time"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/store"
	"churnlearn/internal/services/snapshots/domain"
)

// DefaultPGQuery reads one snapshot from a wide table keyed by date
const DefaultPGQuery = `SELECT * FROM customer_snapshots WHERE snapshot_date = $1`

// DefaultCHQuery is DefaultPGQuery for the ClickHouse warehouse
const DefaultCHQuery = `SELECT * FROM customer_snapshots WHERE snapshot_date = ?`

// PG reads snapshots with a single parameterised query; $1 is the date
type PG struct {
	q     store.RowQuerier
	query string
}

// NewPG returns a Postgres source. An empty query means DefaultPGQuery
func NewPG(q store.RowQuerier, query string) *PG {
	if query == "" {
		query = DefaultPGQuery
	}
	return &PG{q: q, query: query}
}

// Fetch implements domain.SourceRepo
func (p *PG) Fetch(ctx context.Context, date time.Time) (*frame.Frame, error) {
	f, err := fetch(ctx, p.q.Query, p.query, date)
	if err != nil {
		return nil, pgError(ctx, err)
	}
	return f, nil
}

// CH reads snapshots from ClickHouse; ? is the date
type CH struct {
	c     store.Clickhouse
	query string
}

// NewCH returns a ClickHouse source. An empty query means DefaultCHQuery
func NewCH(c store.Clickhouse, query string) *CH {
	if query == "" {
		query = DefaultCHQuery
	}
	return &CH{c: c, query: query}
}

// Fetch implements domain.SourceRepo
func (c *CH) Fetch(ctx context.Context, date time.Time) (*frame.Frame, error) {
	f, err := fetch(ctx, c.c.Query, c.query, date)
	if err != nil {
		if ctx.Err() != nil || perr.HasCode(err, perr.ErrorCodeInvalidArgument) {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "clickhouse snapshot query")
	}
	return f, nil
}

func fetch(ctx context.Context, query store.QueryFunc, sql string, date time.Time) (*frame.Frame, error) {
	res, err := store.Table(ctx, query, sql, date)
	if err != nil {
		return nil, err
	}
	return frame.FromValues(res.Columns, res.Rows)
}

// pgError keeps SQLSTATE mapping and treats driver-level failures
// (dial, reset, pool exhaustion) as unavailable upstream
func pgError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	if _, ok := perr.DBErrorCode(err); ok {
		return perr.FromPostgres(err, "snapshot query")
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "snapshot query")
}

var (
	_ domain.SourceRepo = (*PG)(nil)
	_ domain.SourceRepo = (*CH)(nil)
)
