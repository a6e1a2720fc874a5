//go:build integration_pg

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"churnlearn/internal/platform/testkit/pgcontainer"

	"github.com/rs/zerolog"
)

func TestPGAdapter_TxAndTable_Integration(t *testing.T) {
	dsn := pgcontainer.Start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{AppName: "churnlearn-store-it", PG: PGConfig{Enabled: true, URL: dsn, LogSQL: true}},
		WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if err := s.Guard(ctx); err != nil {
		t.Fatalf("Guard: %v", err)
	}

	if _, err := s.PG.Exec(ctx, `create table snap (customer_id text primary key, plan text, tenure double precision)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.PG.Tx(ctx, func(q RowQuerier) error {
		if err := ExecOne(ctx, q, `insert into snap values ($1, $2, $3)`, "c-1", "gold", 12.5); err != nil {
			return err
		}
		return ExecOne(ctx, q, `insert into snap values ($1, $2, $3)`, "c-2", nil, nil)
	})
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}

	// a failing tx rolls back
	rollback := errors.New("rollback")
	_ = s.PG.Tx(ctx, func(q RowQuerier) error {
		_, _ = q.Exec(ctx, `insert into snap values ('c-3', 'x', 1)`)
		return rollback
	})

	var n int64
	if err := s.PG.QueryRow(ctx, `select count(*) from snap`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}

	res, err := Table(ctx, s.PG.Query, `select customer_id, plan, tenure from snap order by customer_id`)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(res.Rows) != 2 || res.Columns[1] != "plan" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Rows[0][1] != "gold" || res.Rows[0][2] != 12.5 || res.Rows[1][1] != nil {
		t.Fatalf("unexpected values: %#v", res.Rows)
	}
}
