package store

import (
	"context"
	"fmt"
	"time"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/retry"
	chx "churnlearn/internal/platform/store/ch"
	"churnlearn/internal/platform/store/pg"
)

// seams for tests
var (
	pgOpen = pg.Open
	chOpen = chx.Open
)

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracers []pg.QueryTracer
	if cfg.PG.LogSQL {
		tracers = append(tracers, pg.Tracer(s.Log))
	}
	tracer := pg.Multi(append(tracers, s.tracers...)...)

	p, err := pgOpen(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}

	// ping the pool directly so boot retries do not show up as traced SQL
	boot := retry.Policy{Attempts: attempts, Base: 150 * time.Millisecond, Max: 2 * time.Second}
	err = retry.Do(ctx, boot, "postgres ping", func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := p.Ping(pctx); err != nil {
			// not wrapped: a ping deadline must stay retryable
			return perr.Unavailablef("postgres not ready: %v", err)
		}
		return nil
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chOpen(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
		Debug:      cfg.CH.LogSQL,
		Log:        s.Log,
	})
	if err != nil {
		return nil, err
	}
	return chSeam{c}, nil
}
