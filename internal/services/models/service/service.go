// Package service implements the model store over a record repo
// Pipelines are stored as their JSON envelope compressed with zstd
package service

import (
	"context"
	"time"

	"churnlearn/internal/core/churnmodel"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/retry"
	"churnlearn/internal/services/models/domain"

	"github.com/klauspost/compress/zstd"
)

// maxBlob bounds decompressed pipelines
const maxBlob = 256 << 20

// Service implements domain.StorePort
type Service struct {
	repo  domain.StorageRepo
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	now   func() time.Time
	retry retry.Policy
}

// Option configures a Service
type Option func(*Service)

// WithRetry sets the policy around repo reads and writes
func WithRetry(p retry.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// New constructs the model store
func New(repo domain.StorageRepo, opts ...Option) (*Service, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlob))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "zstd decoder")
	}
	s := &Service{repo: repo, enc: enc, dec: dec, now: time.Now, retry: retry.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Save implements domain.StorePort
func (s *Service) Save(ctx context.Context, m domain.StoredModel) error {
	if err := domain.ValidKey(m.Key); err != nil {
		return err
	}
	if m.Pipeline == nil || !m.Pipeline.Fitted() {
		return perr.InvalidArgf("model %q has no fitted pipeline", m.Key)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}

	raw, err := churnmodel.Encode(m.Pipeline)
	if err != nil {
		return perr.WithOp(err, "encode model "+m.Key)
	}
	blob := s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))

	rec := domain.Record{
		Key:        m.Key,
		RunID:      m.RunID,
		CreatedAt:  m.CreatedAt.UTC(),
		Scoring:    m.Scoring,
		Score:      m.Score,
		FoldScores: m.FoldScores,
		Params:     m.Params,
		Window:     m.Window,
		Folds:      m.Folds,
		Blob:       blob,
	}
	err = retry.Do(ctx, s.retry, "save model "+m.Key, func(ctx context.Context) error {
		return s.repo.Put(ctx, rec)
	})
	if err != nil {
		return err
	}
	logger.C(ctx).Info().
		Str("key", m.Key).
		Int("envelope_bytes", len(raw)).
		Int("stored_bytes", len(blob)).
		Msg("model saved")
	return nil
}

// Load implements domain.StorePort
func (s *Service) Load(ctx context.Context, key string) (domain.StoredModel, error) {
	if err := domain.ValidKey(key); err != nil {
		return domain.StoredModel{}, err
	}
	rec, err := retry.Value(ctx, s.retry, "load model "+key, func(ctx context.Context) (domain.Record, error) {
		return s.repo.Get(ctx, key)
	})
	if err != nil {
		return domain.StoredModel{}, err
	}
	raw, err := s.dec.DecodeAll(rec.Blob, nil)
	if err != nil {
		return domain.StoredModel{}, perr.Wrapf(err, perr.ErrorCodeJSON, "model %q: corrupt blob", key)
	}
	p, err := churnmodel.Decode(raw)
	if err != nil {
		return domain.StoredModel{}, perr.WithOp(err, "decode model "+key)
	}
	m := fromRecord(rec)
	m.Pipeline = p
	return m, nil
}

// List implements domain.StorePort
func (s *Service) List(ctx context.Context) ([]domain.StoredModel, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredModel, len(recs))
	for i, r := range recs {
		out[i] = fromRecord(r)
	}
	return out, nil
}

func fromRecord(r domain.Record) domain.StoredModel {
	return domain.StoredModel{
		Key:        r.Key,
		RunID:      r.RunID,
		CreatedAt:  r.CreatedAt,
		Scoring:    r.Scoring,
		Score:      r.Score,
		FoldScores: r.FoldScores,
		Params:     r.Params,
		Window:     r.Window,
		Folds:      r.Folds,
	}
}

var _ domain.StorePort = (*Service)(nil)
