// Package repo provides model record storage in Postgres and on disk
package repo

import (
	"context"
	"encoding/json"
	"time"

	"churnlearn/internal/modkit/repokit"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/store"
	"churnlearn/internal/services/models/domain"
)

// Schema creates the model table
const Schema = `
CREATE TABLE IF NOT EXISTS churn_models (
	key         text PRIMARY KEY,
	run_id      uuid NOT NULL,
	created_at  timestamptz NOT NULL,
	scoring     text NOT NULL,
	score       double precision NOT NULL,
	fold_scores jsonb NOT NULL,
	params      jsonb NOT NULL,
	window_size integer NOT NULL,
	folds       integer NOT NULL,
	pipeline    bytea NOT NULL
)`

// saveTimeout bounds each statement of a save; blobs can be several MB
const saveTimeout = 30 * time.Second

// PG stores records in churn_models
type PG struct{ tx repokit.TxRunner }

// NewPG binds the repo to a transaction runner
func NewPG(tx repokit.TxRunner) *PG { return &PG{tx: tx} }

// Migrate creates the table when missing
func (p *PG) Migrate(ctx context.Context) error {
	_, err := p.tx.Exec(ctx, Schema)
	return perr.FromPostgres(err, "migrate churn_models")
}

// Put upserts a record in one transaction
func (p *PG) Put(ctx context.Context, r domain.Record) error {
	scores, err := json.Marshal(r.FoldScores)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode fold scores")
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode params")
	}

	const q = `
		INSERT INTO churn_models
			(key, run_id, created_at, scoring, score, fold_scores, params, window_size, folds, pipeline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (key) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			created_at = EXCLUDED.created_at,
			scoring = EXCLUDED.scoring,
			score = EXCLUDED.score,
			fold_scores = EXCLUDED.fold_scores,
			params = EXCLUDED.params,
			window_size = EXCLUDED.window_size,
			folds = EXCLUDED.folds,
			pipeline = EXCLUDED.pipeline`
	// concurrent trainings saving the same key land one after the other
	tx := repokit.WithBeginHooks(p.tx, repokit.StatementTimeout(saveTimeout), repokit.AdvisoryLock("churn_models:"+r.Key))
	err = repokit.WithTx(ctx, tx, func(q2 repokit.Queryer) error {
		return store.ExecOne(ctx, q2, q,
			r.Key, r.RunID, r.CreatedAt, r.Scoring, r.Score, scores, params, r.Window, r.Folds, r.Blob)
	})
	return dbErr(err, "save model "+r.Key)
}

// Get loads one record
func (p *PG) Get(ctx context.Context, key string) (domain.Record, error) {
	const q = `
		SELECT key, run_id::text, created_at, scoring, score, fold_scores, params, window_size, folds, pipeline
		FROM churn_models WHERE key = $1`
	r, err := store.One(ctx, p.tx, scanRecord(true), q, key)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Record{}, perr.NotFoundf("model %q not found", key)
	}
	if err != nil {
		return domain.Record{}, dbErr(err, "load model "+key)
	}
	return r, nil
}

// List returns metadata newest first
func (p *PG) List(ctx context.Context) ([]domain.Record, error) {
	const q = `
		SELECT key, run_id::text, created_at, scoring, score, fold_scores, params, window_size, folds
		FROM churn_models ORDER BY created_at DESC, key`
	out, err := store.Many(ctx, p.tx, scanRecord(false), q)
	if err != nil {
		return nil, dbErr(err, "list models")
	}
	return out, nil
}

func scanRecord(withBlob bool) func(store.Row) (domain.Record, error) {
	return func(row store.Row) (domain.Record, error) {
		var (
			r              domain.Record
			scores, params []byte
		)
		dest := []any{&r.Key, &r.RunID, &r.CreatedAt, &r.Scoring, &r.Score, &scores, &params, &r.Window, &r.Folds}
		if withBlob {
			dest = append(dest, &r.Blob)
		}
		if err := row.Scan(dest...); err != nil {
			return r, err
		}
		if err := json.Unmarshal(scores, &r.FoldScores); err != nil {
			return r, perr.Wrap(err, perr.ErrorCodeJSON, "decode fold scores")
		}
		if err := json.Unmarshal(params, &r.Params); err != nil {
			return r, perr.Wrap(err, perr.ErrorCodeJSON, "decode params")
		}
		return r, nil
	}
}

// dbErr maps driver errors and leaves already classified ones alone
func dbErr(err error, msg string) error {
	if _, ok := perr.As(err); ok || err == nil {
		return err
	}
	if _, ok := perr.DBErrorCode(err); !ok {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, msg)
	}
	return perr.FromPostgres(err, msg)
}

var _ domain.StorageRepo = (*PG)(nil)
