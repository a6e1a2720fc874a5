// Package service runs temporal cross-validated searches over the churn
// pipeline and persists the refit winner
package service

import (
	"cmp"
	"context"
	"errors"
	"math"
	"runtime"
	"slices"
	"strconv"
	"time"

	"churnlearn/internal/core/churnmodel"
	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/grid"
	"churnlearn/internal/core/metrics"
	"churnlearn/internal/core/pipeline"
	"churnlearn/internal/core/temporal"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	griddom "churnlearn/internal/services/grids/domain"
	modeldom "churnlearn/internal/services/models/domain"
	snapdom "churnlearn/internal/services/snapshots/domain"
	"churnlearn/internal/services/training/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// reportThreshold is the churn cut used for the confusion counts in Report
const reportThreshold = 0.5

// Config for the training service
type Config struct {
	// Workers bounds concurrent candidate x fold units; zero means NumCPU-1
	Workers int
}

// Service implements domain.RunnerPort
type Service struct {
	snapshots snapdom.ReaderPort
	grids     griddom.StorePort
	models    modeldom.StorePort
	cfg       Config
	metrics   *Metrics

	template func() *pipeline.Pipeline
	newID    func() string
	now      func() time.Time
}

// New constructs the orchestrator; m may be nil
func New(snaps snapdom.ReaderPort, grids griddom.StorePort, models modeldom.StorePort, cfg Config, m *Metrics) *Service {
	return &Service{
		snapshots: snaps,
		grids:     grids,
		models:    models,
		cfg:       cfg,
		metrics:   m,
		template:  churnmodel.Template,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// DefaultWorkers keeps one core for the coordinator
func DefaultWorkers() int { return max(1, runtime.NumCPU()-1) }

// dataset is the concatenated, read-only training table
type dataset struct {
	X      *frame.Frame
	y      []float64
	groups []time.Time
}

// foldData holds one fold's row subsets, shared read-only by every unit
type foldData struct {
	index  int
	trainX *frame.Frame
	trainY []float64
	testX  *frame.Frame
	testY  []float64
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context, req domain.RunRequest) (res domain.Result, err error) {
	runID := s.newID()
	ctx = logger.WithRun(ctx, runID, req.ModelKey)
	log := logger.C(ctx)

	phase := domain.PhaseInitialized
	phaseStart := time.Now()
	enter := func(p domain.Phase) {
		s.metrics.phaseDone(phase, phaseStart)
		log.Info().Str("from", string(phase)).Str("to", string(p)).Dur("took", time.Since(phaseStart)).Msg("phase")
		phase, phaseStart = p, time.Now()
	}
	fail := func(class domain.Class, cause error) error {
		if class == "" {
			class = domain.Classify(cause)
		}
		if ctx.Err() != nil && class == domain.ClassInternal {
			cause = ctx.Err()
		}
		return &domain.RunError{Phase: phase, Class: class, Err: cause}
	}
	defer func() {
		if err == nil {
			s.metrics.run("ok")
			return
		}
		var re *domain.RunError
		if !errors.As(err, &re) {
			re = fail("", err).(*domain.RunError)
			err = re
		}
		s.metrics.run(string(re.Class))
		log.Error().Err(re.Err).Str("phase", string(re.Phase)).Str("class", string(re.Class)).Msg("training run failed")
	}()

	// Initialized: settings, grid, snapshots
	if err := req.Validate(); err != nil {
		return res, fail(domain.ClassConfiguration, err)
	}
	scorer, err := metrics.Lookup(req.Scoring)
	if err != nil {
		return res, fail(domain.ClassConfiguration, err)
	}
	g, err := s.grids.Load(ctx, req.Grid)
	if err != nil {
		class := domain.ClassConfiguration
		if perr.HasCode(err, perr.ErrorCodeUnavailable) {
			class = domain.ClassUpstream
		}
		return res, fail(class, err)
	}
	dates := req.Dates()
	data, err := s.read(ctx, dates)
	if err != nil {
		return res, fail("", err)
	}

	enter(domain.PhaseGroupsAssigned)
	split, err := temporal.New(data.groups, req.Window)
	if err != nil {
		return res, fail(domain.ClassConfiguration, err)
	}
	template := s.template()
	bound, dropped := grid.BindReport(template.StepNames(), g)
	if len(dropped) > 0 {
		log.Warn().Strs("steps", dropped).Strs("pipeline", template.StepNames()).Msg("grid options for steps not in the pipeline were ignored")
	}
	space, err := grid.NewSpace(bound)
	if err != nil {
		return res, fail(domain.ClassConfiguration, err)
	}
	picked := space.Sample(req.Budget, req.Seed)
	cands := make([]grid.Candidate, len(picked))
	for i, idx := range picked {
		cands[i] = space.At(idx)
		if err := template.Clone().SetParams(cands[i]); err != nil {
			return res, fail(domain.ClassConfiguration, err)
		}
	}
	folds := s.folds(data, split)
	log.Info().
		Int("rows", data.X.Rows()).
		Int("groups", split.NGroups()).
		Int("folds", split.NFolds()).
		Int("space", space.Size()).
		Int("candidates", len(cands)).
		Msg("search planned")

	enter(domain.PhaseSearching)
	workers := s.cfg.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	table, err := s.search(ctx, template, cands, folds, scorer, workers)
	if err != nil {
		return res, fail("", err)
	}

	enter(domain.PhaseBestFound)
	results := make([]domain.CandidateResult, len(cands))
	for i := range cands {
		results[i] = domain.CandidateResult{
			Index:      picked[i],
			Params:     cands[i],
			FoldScores: table[i],
			Mean:       stat.Mean(table[i], nil),
		}
	}
	best := bestOf(results)
	win := results[best]
	log.Info().Int("candidate", win.Index).Float64("score", win.Mean).Interface("params", win.Params).Msg("best configuration")

	report := s.report(ctx, template, win.Params, folds[len(folds)-1])

	enter(domain.PhaseRefittingFinal)
	final := template.Clone()
	if err := final.SetParams(win.Params); err != nil {
		return res, fail(domain.ClassInternal, err)
	}
	finalRows := split.FinalTrainingSet()
	if err := final.Fit(ctx, data.X.Take(finalRows), take(data.y, finalRows)); err != nil {
		return res, fail("", err)
	}
	report.TopImportances = topImportances(final, 10)
	if err := ctx.Err(); err != nil {
		return res, fail(domain.ClassInternal, err)
	}

	created := s.now()
	model := modeldom.StoredModel{
		Key:        req.ModelKey,
		RunID:      runID,
		CreatedAt:  created,
		Scoring:    req.Scoring,
		Score:      win.Mean,
		FoldScores: win.FoldScores,
		Params:     win.Params,
		Window:     req.Window,
		Folds:      split.NFolds(),
		Pipeline:   final,
	}
	if err := s.models.Save(ctx, model); err != nil {
		return res, fail("", err)
	}
	enter(domain.PhaseDone)
	s.metrics.best(req.Scoring, win.Mean, data.X.Rows())

	return domain.Result{
		RunID:        runID,
		ModelKey:     req.ModelKey,
		CreatedAt:    created,
		Scoring:      req.Scoring,
		Score:        win.Mean,
		FoldScores:   win.FoldScores,
		Params:       win.Params,
		Candidates:   results,
		Best:         best,
		Dates:        dates,
		Window:       req.Window,
		Folds:        split.NFolds(),
		Rows:         data.X.Rows(),
		FinalRows:    len(finalRows),
		DroppedSteps: dropped,
		Report:       report,
		Pipeline:     final,
	}, nil
}

// read loads every snapshot and stacks them; each row's group is its
// snapshot date. Eligibility is already applied by the reader
func (s *Service) read(ctx context.Context, dates []time.Time) (dataset, error) {
	frames := make([]*frame.Frame, 0, len(dates))
	var d dataset
	for _, date := range dates {
		snap, err := s.snapshots.Read(ctx, date)
		if err != nil {
			return dataset{}, err
		}
		if snap.Labels == nil {
			return dataset{}, perr.Configurationf("snapshot %s has no label column", date.Format(time.DateOnly))
		}
		frames = append(frames, snap.Features)
		d.y = append(d.y, snap.Labels...)
		for range snap.Len() {
			d.groups = append(d.groups, date)
		}
	}
	X, err := frame.Concat(frames...)
	if err != nil {
		return dataset{}, perr.Wrap(err, perr.ErrorCodeConfiguration, "snapshots disagree on column kinds")
	}
	d.X = X
	return d, nil
}

func (s *Service) folds(d dataset, split *temporal.Splitter) []foldData {
	out := make([]foldData, 0, split.NFolds())
	for f := range split.Split() {
		out = append(out, foldData{
			index:  f.Index,
			trainX: d.X.Take(f.Train),
			trainY: take(d.y, f.Train),
			testX:  d.X.Take(f.Test),
			testY:  take(d.y, f.Test),
		})
	}
	return out
}

// search scores every candidate on every fold. The first failure cancels
// the rest and no partial table is returned
func (s *Service) search(ctx context.Context, template *pipeline.Pipeline, cands []grid.Candidate, folds []foldData, scorer metrics.Scorer, workers int) ([][]float64, error) {
	table := make([][]float64, len(cands))
	for i := range table {
		table[i] = make([]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for ci := range cands {
		for fi := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				score, err := evaluate(gctx, template, cands[ci], folds[fi], scorer)
				s.metrics.unit(start, err)
				if err != nil {
					return perr.WithOp(err, "candidate "+strconv.Itoa(ci)+" fold "+strconv.Itoa(folds[fi].index))
				}
				table[ci][fi] = score
				logger.C(gctx).Debug().Int("candidate", ci).Int("fold", folds[fi].index).Float64("score", score).Dur("took", time.Since(start)).Msg("unit scored")
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return table, nil
}

// evaluate fits a fresh clone on the fold's training rows and scores its
// test rows
func evaluate(ctx context.Context, template *pipeline.Pipeline, params grid.Candidate, fd foldData, scorer metrics.Scorer) (float64, error) {
	p, err := fitted(ctx, template, params, fd)
	if err != nil {
		return 0, err
	}
	prob, err := p.PredictProba(fd.testX)
	if err != nil {
		return 0, err
	}
	score, err := scorer(fd.testY, prob)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(score) {
		return 0, perr.Internalf("score is NaN")
	}
	return score, nil
}

func fitted(ctx context.Context, template *pipeline.Pipeline, params grid.Candidate, fd foldData) (*pipeline.Pipeline, error) {
	p := template.Clone()
	if err := p.SetParams(params); err != nil {
		return nil, err
	}
	if err := p.Fit(ctx, fd.trainX, fd.trainY); err != nil {
		return nil, err
	}
	return p, nil
}

// report re-fits the winner on the newest fold and evaluates its test rows.
// It only feeds logs and the run result, so a failure is a warning and the
// run goes on to the refit
func (s *Service) report(ctx context.Context, template *pipeline.Pipeline, params grid.Candidate, fd foldData) domain.Report {
	log := logger.C(ctx)
	r := domain.Report{Fold: fd.index, Threshold: reportThreshold}
	p, err := fitted(ctx, template, params, fd)
	if err != nil {
		log.Warn().Err(err).Int("fold", fd.index).Msg("newest fold report skipped")
		return r
	}
	prob, err := p.PredictProba(fd.testX)
	if err != nil {
		log.Warn().Err(err).Int("fold", fd.index).Msg("newest fold report skipped")
		return r
	}

	evt := log.Info().Int("fold", r.Fold)
	if v, err := metrics.ROCAUC(fd.testY, prob); err != nil {
		log.Warn().Err(err).Msg("report roc_auc unavailable")
	} else {
		r.ROCAUC = &v
		evt.Float64("roc_auc", v)
	}
	if v, err := metrics.PrecisionAtK(10)(fd.testY, prob); err != nil {
		log.Warn().Err(err).Msg("report precision_at_10 unavailable")
	} else {
		r.PrecisionAt10 = &v
		evt.Float64("precision_at_10", v)
	}
	if c, err := metrics.ConfusionAt(fd.testY, prob, reportThreshold); err != nil {
		log.Warn().Err(err).Msg("report confusion unavailable")
	} else {
		r.Confusion = &c
		evt.Int("tp", c.TP).
			Int("fp", c.FP).
			Int("tn", c.TN).
			Int("fn", c.FN).
			Float64("precision", c.Precision()).
			Float64("recall", c.Recall())
	}
	evt.Msg("newest fold report")
	return r
}

// bestOf returns the position of the highest mean; ties keep the earliest
// enumerated candidate
func bestOf(rs []domain.CandidateResult) int {
	best := 0
	for i := 1; i < len(rs); i++ {
		if rs[i].Mean > rs[best].Mean {
			best = i
		}
	}
	return best
}

func topImportances(p *pipeline.Pipeline, n int) []domain.Importance {
	imp := p.Importances()
	out := make([]domain.Importance, 0, len(imp))
	for c, v := range imp {
		out = append(out, domain.Importance{Column: c, Value: v})
	}
	slices.SortFunc(out, func(a, b domain.Importance) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return out[:min(n, len(out))]
}

func take(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
