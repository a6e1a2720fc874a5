// Package service scores rows against persisted churn models
package service

import (
	"context"
	"maps"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"churnlearn/internal/core/encoder"
	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/pipeline"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/services/api/scoring/domain"
	modeldom "churnlearn/internal/services/models/domain"

	"golang.org/x/sync/singleflight"
)

// Service is the scoring service contract
type Service interface {
	domain.ServicePort
}

// Config for the scoring service
type Config struct {
	// CacheTTL keeps a loaded model in memory this long; zero loads per call
	CacheTTL time.Duration
}

type cached struct {
	model    modeldom.StoredModel
	loadedAt time.Time
}

type service struct {
	store   modeldom.StorePort
	cfg     Config
	metrics *Metrics
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cached
	sf    singleflight.Group
}

// New constructs the scoring service; m may be nil
func New(store modeldom.StorePort, cfg Config, m *Metrics) Service {
	return &service{store: store, cfg: cfg, metrics: m, now: time.Now, cache: map[string]cached{}}
}

// List implements domain.ServicePort
func (s *service) List(ctx context.Context) ([]domain.ModelSummary, error) {
	ms, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ModelSummary, len(ms))
	for i, m := range ms {
		out[i] = summary(m)
	}
	return out, nil
}

// Describe implements domain.ServicePort
func (s *service) Describe(ctx context.Context, key string) (domain.ModelInfo, error) {
	m, err := s.load(ctx, key)
	if err != nil {
		return domain.ModelInfo{}, err
	}
	info := domain.ModelInfo{
		ModelSummary: summary(m),
		FoldScores:   m.FoldScores,
		Params:       m.Params,
		Window:       m.Window,
		Folds:        m.Folds,
		Steps:        m.Pipeline.StepNames(),
		Columns:      m.Pipeline.TransformedColumns(),
	}
	if enc, ok := pipeline.StepAs[*encoder.Encoder](m.Pipeline); ok && enc.Vocabulary() != nil {
		for _, src := range enc.Vocabulary().Sources() {
			info.Sources = append(info.Sources, domain.Source{Name: src.Name, Kind: src.Kind.String(), Retained: src.Retained})
		}
	}
	return info, nil
}

// Score implements domain.ServicePort. Rows lacking a column the model was
// fit on are rejected as schema drift instead of being zero-filled
func (s *service) Score(ctx context.Context, key string, in domain.ScoreInput) (domain.ScoreOutput, error) {
	start := s.now()
	m, err := s.load(ctx, key)
	if err != nil {
		return domain.ScoreOutput{}, err
	}
	X, keys, err := rowsToFrame(in.Rows, in.KeyColumn)
	if err != nil {
		return domain.ScoreOutput{}, err
	}
	if enc, ok := pipeline.StepAs[*encoder.Encoder](m.Pipeline); ok {
		if err := enc.CheckSchema(X); err != nil {
			s.metrics.drift(key)
			return domain.ScoreOutput{}, err
		}
	}
	prob, err := m.Pipeline.PredictProba(X)
	if err != nil {
		return domain.ScoreOutput{}, err
	}

	out := domain.ScoreOutput{Model: m.Key, RunID: m.RunID, Scores: make([]domain.Score, len(prob))}
	for i, p := range prob {
		if math.IsNaN(p) {
			return domain.ScoreOutput{}, perr.Internalf("row %d scored NaN", i)
		}
		out.Scores[i].Probability = p
		if keys != nil {
			out.Scores[i].Key = keys[i]
		}
	}
	s.metrics.scored(key, len(prob), s.now().Sub(start))
	logger.C(ctx).Debug().Str("model_key", key).Int("rows", len(prob)).Msg("scored")
	return out, nil
}

// load reads a model through the cache; concurrent misses for one key share
// a single store read
func (s *service) load(ctx context.Context, key string) (modeldom.StoredModel, error) {
	if err := modeldom.ValidKey(key); err != nil {
		return modeldom.StoredModel{}, err
	}
	if s.cfg.CacheTTL > 0 {
		s.mu.Lock()
		c, ok := s.cache[key]
		s.mu.Unlock()
		if ok && s.now().Sub(c.loadedAt) < s.cfg.CacheTTL {
			return c.model, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		m, err := s.store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if s.cfg.CacheTTL > 0 {
			s.mu.Lock()
			s.cache[key] = cached{model: m, loadedAt: s.now()}
			s.mu.Unlock()
		}
		return m, nil
	})
	if err != nil {
		return modeldom.StoredModel{}, err
	}
	return v.(modeldom.StoredModel), nil
}

func summary(m modeldom.StoredModel) domain.ModelSummary {
	return domain.ModelSummary{
		Key:       m.Key,
		RunID:     m.RunID,
		CreatedAt: m.CreatedAt.UTC(),
		Scoring:   m.Scoring,
		Score:     m.Score,
	}
}

// rowsToFrame turns request rows into a frame over the union of their
// columns; a column absent from a row is null there
func rowsToFrame(rows []map[string]any, keyCol string) (*frame.Frame, []string, error) {
	names := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			if k != keyCol {
				names[k] = struct{}{}
			}
		}
	}
	cols := slices.Sorted(maps.Keys(names))

	var keys []string
	if keyCol != "" {
		keys = make([]string, len(rows))
	}
	vals := make([][]any, len(rows))
	for i, row := range rows {
		if keyCol != "" {
			k, err := keyOf(row[keyCol])
			if err != nil {
				return nil, nil, perr.WithField(perr.InvalidArgf("row %d: %v", i, err), keyCol)
			}
			keys[i] = k
		}
		vals[i] = make([]any, len(cols))
		for j, c := range cols {
			switch v := row[c].(type) {
			case nil, float64, string, bool:
				vals[i][j] = v
			default:
				return nil, nil, perr.WithField(perr.InvalidArgf("row %d: column %q must be a number, string, bool or null, got %T", i, c, v), c)
			}
		}
	}
	X, err := frame.FromValues(cols, vals)
	if err != nil {
		return nil, nil, err
	}
	return X, keys, nil
}

func keyOf(v any) (string, error) {
	switch k := v.(type) {
	case string:
		if k != "" {
			return k, nil
		}
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), nil
	}
	return "", perr.InvalidArgf("key must be a non-empty string or a number")
}
