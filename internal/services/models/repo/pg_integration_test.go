//go:build integration_pg

package repo

import (
	"context"
	"testing"
	"time"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/store"
	"churnlearn/internal/platform/testkit/pgcontainer"
	"churnlearn/internal/services/models/domain"

	"github.com/rs/zerolog"
)

func TestPG_PutGetList_Integration(t *testing.T) {
	dsn := pgcontainer.Start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s, err := store.Open(ctx, store.Config{AppName: "churnlearn-models-it", PG: store.PGConfig{Enabled: true, URL: dsn}},
		store.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	r := NewPG(s.PG)
	if err := r.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	rec := domain.Record{
		Key:        "weekly",
		RunID:      "3b8f2a52-5a43-4b55-9d53-1f7c2f0b9a11",
		CreatedAt:  time.Date(2018, 1, 28, 0, 0, 0, 0, time.UTC),
		Scoring:    "roc_auc",
		Score:      0.7,
		FoldScores: []float64{0.69, 0.71},
		Params:     map[string]any{"classifier__C": 0.5},
		Window:     4,
		Folds:      2,
		Blob:       []byte{0x28, 0xb5, 0x2f, 0xfd},
	}
	if err := r.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.Score = 0.8
	if err := r.Put(ctx, rec); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}

	got, err := r.Get(ctx, "weekly")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score != 0.8 || got.RunID != rec.RunID || string(got.Blob) != string(rec.Blob) || got.Params["classifier__C"] != 0.5 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}

	list, err := r.List(ctx)
	if err != nil || len(list) != 1 || list[0].Blob != nil {
		t.Fatalf("List = %+v, %v", list, err)
	}

	if _, err := r.Get(ctx, "missing"); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Get missing = %v", err)
	}
}
