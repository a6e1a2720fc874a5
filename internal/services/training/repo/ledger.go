// Package repo records finished training runs in the ClickHouse warehouse
package repo

import (
	"context"
	"encoding/json"
	"regexp"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/store"
	"churnlearn/internal/services/training/domain"
)

// DefaultTable holds one row per candidate and fold:
//
//	CREATE TABLE churn_runs (
//	    run_id String, model_key String, created_at DateTime64(3),
//	    scoring LowCardinality(String), candidate UInt32, fold UInt32,
//	    score Float64, params String, winner UInt8
//	) ENGINE = MergeTree ORDER BY (model_key, created_at, run_id)
const DefaultTable = "churn_runs"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Ledger appends the fold scores of every evaluated candidate so runs can be
// compared across weeks
type Ledger struct {
	c     store.Clickhouse
	table string
}

// NewLedger validates table since it is spliced into the INSERT
func NewLedger(c store.Clickhouse, table string) (*Ledger, error) {
	if c == nil {
		return nil, perr.Configurationf("run ledger needs a clickhouse backend")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, perr.Configurationf("run ledger table %q is not an identifier", table)
	}
	return &Ledger{c: c, table: table}, nil
}

// Record writes res in one batch
func (l *Ledger) Record(ctx context.Context, res domain.Result) error {
	rows, err := Rows(res)
	if err != nil {
		return err
	}
	if err := l.c.Insert(ctx, l.table, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "record run %s", res.RunID)
	}
	return nil
}

// Rows flattens res into the ledger's column order
func Rows(res domain.Result) ([][]any, error) {
	var out [][]any
	for i, c := range res.Candidates {
		params, err := json.Marshal(c.Params)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "candidate %d params", c.Index)
		}
		winner := uint8(0)
		if i == res.Best {
			winner = 1
		}
		for f, score := range c.FoldScores {
			out = append(out, []any{
				res.RunID, res.ModelKey, res.CreatedAt, res.Scoring,
				uint32(c.Index), uint32(f), score, string(params), winner,
			})
		}
	}
	return out, nil
}
