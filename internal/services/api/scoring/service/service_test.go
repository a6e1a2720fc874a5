package service

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"churnlearn/internal/core/churnmodel"
	"churnlearn/internal/core/churnmodel/churntest"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/services/api/scoring/domain"
	modeldom "churnlearn/internal/services/models/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	model modeldom.StoredModel
	loads atomic.Int32
}

func (f *fakeStore) Save(context.Context, modeldom.StoredModel) error { return nil }

func (f *fakeStore) Load(_ context.Context, key string) (modeldom.StoredModel, error) {
	f.loads.Add(1)
	if key != f.model.Key {
		return modeldom.StoredModel{}, perr.NotFoundf("model %q not found", key)
	}
	return f.model, nil
}

func (f *fakeStore) List(context.Context) ([]modeldom.StoredModel, error) {
	m := f.model
	m.Pipeline = nil
	return []modeldom.StoredModel{m}, nil
}

func newStore(t *testing.T) *fakeStore {
	t.Helper()
	X, y := churntest.Customers(300, 3)
	p := churnmodel.Template()
	require.NoError(t, p.Fit(context.Background(), X, y))
	return &fakeStore{model: modeldom.StoredModel{
		Key:       "weekly",
		RunID:     "run-1",
		CreatedAt: time.Date(2018, 1, 29, 6, 0, 0, 0, time.UTC),
		Scoring:   "roc_auc",
		Score:     0.74,
		Window:    4,
		Folds:     2,
		Pipeline:  p,
	}}
}

func rowsOf(n int, seed uint64) []map[string]any {
	X, _ := churntest.Customers(n, seed)
	plan, _ := X.Col("plan")
	logins, _ := X.Col("logins")
	rows := make([]map[string]any, n)
	for i := range rows {
		row := map[string]any{"customer_id": float64(1000 + i)}
		if plan.IsNull(i) {
			row["plan"] = nil
		} else {
			row["plan"] = plan.Str[i]
		}
		if math.IsNaN(logins.Num[i]) {
			row["logins"] = nil
		} else {
			row["logins"] = logins.Num[i]
		}
		rows[i] = row
	}
	return rows
}

func TestScore_MatchesPipeline(t *testing.T) {
	store := newStore(t)
	svc := New(store, Config{}, nil)

	out, err := svc.Score(context.Background(), "weekly", domain.ScoreInput{Rows: rowsOf(40, 9), KeyColumn: "customer_id"})
	require.NoError(t, err)
	assert.Equal(t, "weekly", out.Model)
	assert.Equal(t, "run-1", out.RunID)
	require.Len(t, out.Scores, 40)

	X, _ := churntest.Customers(40, 9)
	want, err := store.model.Pipeline.PredictProba(X)
	require.NoError(t, err)
	for i, s := range out.Scores {
		assert.InDelta(t, want[i], s.Probability, 1e-12)
	}
	assert.Equal(t, "1000", out.Scores[0].Key)
	assert.Equal(t, "1039", out.Scores[39].Key)
}

func TestScore_ExtraColumnsIgnoredMissingColumnsRejected(t *testing.T) {
	svc := New(newStore(t), Config{}, nil)

	rows := rowsOf(5, 1)
	for _, r := range rows {
		r["region"] = "north"
	}
	_, err := svc.Score(context.Background(), "weekly", domain.ScoreInput{Rows: rows})
	require.NoError(t, err)

	for _, r := range rows {
		delete(r, "plan")
	}
	_, err = svc.Score(context.Background(), "weekly", domain.ScoreInput{Rows: rows})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeSchemaDrift), "got %v", err)
	assert.Equal(t, 409, perr.HTTPStatus(err))
}

func TestScore_RejectsBadRows(t *testing.T) {
	svc := New(newStore(t), Config{}, nil)
	cases := map[string]domain.ScoreInput{
		"nested value": {Rows: []map[string]any{{"plan": map[string]any{"a": 1}, "logins": 3.0}}},
		"missing key":  {Rows: []map[string]any{{"plan": "gold", "logins": 3.0}}, KeyColumn: "customer_id"},
		"empty key":    {Rows: []map[string]any{{"customer_id": "", "plan": "gold"}}, KeyColumn: "customer_id"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Score(context.Background(), "weekly", in)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument), "got %v", err)
		})
	}
}

func TestLoad_KeysAndMisses(t *testing.T) {
	svc := New(newStore(t), Config{}, nil)

	_, err := svc.Describe(context.Background(), "../etc/passwd")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	_, err = svc.Describe(context.Background(), "monthly")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestLoad_CacheHonoursTTL(t *testing.T) {
	store := newStore(t)
	svc := New(store, Config{CacheTTL: time.Minute}, nil).(*service)
	now := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	for range 3 {
		_, err := svc.Describe(ctx, "weekly")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, store.loads.Load())

	now = now.Add(2 * time.Minute)
	_, err := svc.Describe(ctx, "weekly")
	require.NoError(t, err)
	assert.EqualValues(t, 2, store.loads.Load())

	uncached := New(store, Config{}, nil)
	for range 2 {
		_, err := uncached.Describe(ctx, "weekly")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 4, store.loads.Load())
}

func TestDescribe_ReportsSchema(t *testing.T) {
	svc := New(newStore(t), Config{}, nil)
	info, err := svc.Describe(context.Background(), "weekly")
	require.NoError(t, err)

	assert.Equal(t, "weekly", info.Key)
	assert.Equal(t, []string{"categorical_encoder", "imputer", "variance_threshold", "classifier"}, info.Steps)
	require.Len(t, info.Sources, 2)
	assert.Equal(t, domain.Source{Name: "plan", Kind: "categorical", Retained: info.Sources[0].Retained}, info.Sources[0])
	assert.NotEmpty(t, info.Sources[0].Retained)
	assert.Equal(t, "logins", info.Sources[1].Name)
	assert.Equal(t, "numeric", info.Sources[1].Kind)
	assert.Contains(t, info.Columns, "logins")
}

func TestList(t *testing.T) {
	svc := New(newStore(t), Config{}, nil)
	ms, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "weekly", ms[0].Key)
	assert.Equal(t, 0.74, ms[0].Score)
}
