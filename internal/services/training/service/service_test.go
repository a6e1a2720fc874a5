package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"churnlearn/internal/core/churnmodel"
	"churnlearn/internal/core/churnmodel/churntest"
	"churnlearn/internal/core/frame"
	"churnlearn/internal/core/grid"
	"churnlearn/internal/core/metrics"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/testkit"
	modeldom "churnlearn/internal/services/models/domain"
	snapdom "churnlearn/internal/services/snapshots/domain"
	"churnlearn/internal/services/training/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const perSnapshot = 120

type fakeSnapshots struct {
	mu      sync.Mutex
	reads   []time.Time
	missing time.Time
	onRead  func(time.Time)
	// constant overrides every label of a snapshot, keyed by date
	constant map[string]float64
}

func (f *fakeSnapshots) Read(_ context.Context, date time.Time) (snapdom.Snapshot, error) {
	f.mu.Lock()
	f.reads = append(f.reads, date)
	f.mu.Unlock()
	if f.onRead != nil {
		f.onRead(date)
	}
	if date.Equal(f.missing) {
		return snapdom.Snapshot{}, perr.NotFoundf("snapshot %s has no rows", date.Format(time.DateOnly))
	}
	X, y := churntest.Customers(perSnapshot, uint64(date.Unix()))
	if v, ok := f.constant[date.Format(time.DateOnly)]; ok {
		for i := range y {
			y[i] = v
		}
	}
	keys := make([]string, perSnapshot)
	for i := range keys {
		keys[i] = date.Format(time.DateOnly) + "-" + string(rune('a'+i%26))
	}
	return snapdom.Snapshot{Date: date, Keys: keys, Features: X, Labels: y}, nil
}

type fakeGrids struct{ g grid.Grid }

func (f fakeGrids) Load(_ context.Context, key string) (grid.Grid, error) {
	if key != "weekly" {
		return nil, perr.NotFoundf("grid %q not found", key)
	}
	return f.g, nil
}

type fakeModels struct {
	mu    sync.Mutex
	saved []modeldom.StoredModel
}

func (f *fakeModels) Save(_ context.Context, m modeldom.StoredModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeModels) Load(context.Context, string) (modeldom.StoredModel, error) {
	return modeldom.StoredModel{}, perr.NotFoundf("unused")
}

func (f *fakeModels) List(context.Context) ([]modeldom.StoredModel, error) { return nil, nil }

func weeklyGrid() grid.Grid {
	return grid.Grid{
		"categorical_encoder": {"max_categories": {2, 4}},
		"classifier":          {"C": {0.1, 1.0, 10.0}},
		"feature_union":       {"n": {3}},
	}
}

func request() domain.RunRequest {
	return domain.RunRequest{
		OutcomeDate: testkit.Day(2018, 1, 28),
		Snapshots:   6,
		Offset:      7,
		Window:      4,
		Budget:      4,
		Grid:        "weekly",
		ModelKey:    "weekly",
		Scoring:     "roc_auc",
		Seed:        11,
		Workers:     3,
	}
}

func newService(snaps *fakeSnapshots, models *fakeModels, reg prometheus.Registerer) *Service {
	var m *Metrics
	if reg != nil {
		m = NewMetrics(reg)
	}
	s := New(snaps, fakeGrids{weeklyGrid()}, models, Config{}, m)
	s.newID = func() string { return "run-1" }
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	snaps, models := &fakeSnapshots{}, &fakeModels{}
	reg := prometheus.NewRegistry()
	svc := newService(snaps, models, reg)

	res, err := svc.Run(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, testkit.Weekly(testkit.Day(2018, 1, 28), 6), res.Dates)
	assert.Equal(t, 2, res.Folds)
	assert.Equal(t, 6*perSnapshot, res.Rows)
	assert.Equal(t, 4*perSnapshot, res.FinalRows, "final set is the newest four groups")
	assert.Equal(t, []string{"feature_union"}, res.DroppedSteps)
	require.Len(t, res.Candidates, 4)
	for _, c := range res.Candidates {
		assert.Len(t, c.FoldScores, 2)
		testkit.MustInDelta(t, c.Mean, (c.FoldScores[0]+c.FoldScores[1])/2, 1e-12)
		assert.Contains(t, c.Params, "classifier__C")
		assert.NotContains(t, c.Params, "feature_union__n")
	}
	for i := 1; i < len(res.Candidates); i++ {
		assert.Less(t, res.Candidates[i-1].Index, res.Candidates[i].Index)
	}
	assert.Equal(t, res.Candidates[bestOf(res.Candidates)].Mean, res.Score)
	assert.Equal(t, 1, res.Report.Fold)
	assert.NotEmpty(t, res.Report.TopImportances)

	require.Len(t, models.saved, 1)
	saved := models.saved[0]
	assert.Equal(t, "weekly", saved.Key)
	assert.Equal(t, "run-1", saved.RunID)
	assert.Equal(t, res.Score, saved.Score)
	assert.True(t, saved.Pipeline.Fitted())
	assert.Equal(t, 4, saved.Window)

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.runs.WithLabelValues("ok")))
	assert.Equal(t, 8.0, testutil.ToFloat64(svc.metrics.units.WithLabelValues("ok")))
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	req := request()
	req.Workers = 1
	a, err := newService(&fakeSnapshots{}, &fakeModels{}, nil).Run(context.Background(), req)
	require.NoError(t, err)

	req.Workers = 8
	b, err := newService(&fakeSnapshots{}, &fakeModels{}, nil).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Candidates, b.Candidates)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Params, b.Params)
}

func TestRun_TooFewGroupsIsConfiguration(t *testing.T) {
	models := &fakeModels{}
	req := request()
	req.Snapshots = 3
	req.Window = 2

	_, err := newService(&fakeSnapshots{}, models, nil).Run(context.Background(), req)
	var re *domain.RunError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, domain.PhaseGroupsAssigned, re.Phase)
	assert.Equal(t, domain.ClassConfiguration, re.Class)
	assert.True(t, perr.HasCode(err, perr.ErrorCodeConfiguration))
	assert.Empty(t, models.saved)
}

func TestRun_MissingSnapshotIsUpstream(t *testing.T) {
	snaps := &fakeSnapshots{missing: testkit.Day(2018, 1, 14)}
	models := &fakeModels{}
	_, err := newService(snaps, models, nil).Run(context.Background(), request())

	var re *domain.RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.PhaseInitialized, re.Phase)
	assert.Equal(t, domain.ClassUpstream, re.Class)
	assert.Empty(t, models.saved)
}

func TestRun_BadSettings(t *testing.T) {
	cases := map[string]func(*domain.RunRequest){
		"unknown grid":   func(r *domain.RunRequest) { r.Grid = "nope" },
		"unknown scorer": func(r *domain.RunRequest) { r.Scoring = "accuracy" },
		"window":         func(r *domain.RunRequest) { r.Window = 0 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			req := request()
			mut(&req)
			snaps := &fakeSnapshots{}
			_, err := newService(snaps, &fakeModels{}, nil).Run(context.Background(), req)
			var re *domain.RunError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, domain.ClassConfiguration, re.Class)
			assert.Empty(t, snaps.reads, "no snapshot is read for a run that cannot succeed")
		})
	}
}

func TestRun_InvalidCandidateFailsBeforeSearch(t *testing.T) {
	svc := newService(&fakeSnapshots{}, &fakeModels{}, nil)
	svc.grids = fakeGrids{grid.Grid{"classifier": {"C": {1.0, -1.0}}}}
	_, err := svc.Run(context.Background(), request())
	var re *domain.RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, domain.PhaseGroupsAssigned, re.Phase)
	assert.Equal(t, domain.ClassConfiguration, re.Class)
}

func TestRun_CancelledRunPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	last := testkit.Day(2018, 1, 28)
	snaps := &fakeSnapshots{onRead: func(d time.Time) {
		if d.Equal(last) {
			cancel()
		}
	}}
	models := &fakeModels{}

	_, err := newService(snaps, models, nil).Run(ctx, request())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, models.saved)
}

func TestRun_SingleClassNewestFoldStillSavesModel(t *testing.T) {
	snaps := &fakeSnapshots{constant: map[string]float64{"2018-01-28": 0}}
	models := &fakeModels{}
	req := request()
	req.Scoring = "neg_log_loss"

	res, err := newService(snaps, models, nil).Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Fold)
	assert.Nil(t, res.Report.ROCAUC, "roc_auc is undefined on one class")
	require.NotNil(t, res.Report.PrecisionAt10)
	assert.Zero(t, *res.Report.PrecisionAt10)
	require.NotNil(t, res.Report.Confusion)
	assert.Zero(t, res.Report.Confusion.TP+res.Report.Confusion.FN)
	assert.NotEmpty(t, res.Report.TopImportances)
	require.Len(t, models.saved, 1)
}

func TestRun_FailingUnitAbortsSearch(t *testing.T) {
	// fold 0 tests on 2018-01-21; roc_auc cannot score a single class
	snaps := &fakeSnapshots{constant: map[string]float64{"2018-01-21": 1}}
	models := &fakeModels{}
	reg := prometheus.NewRegistry()
	svc := newService(snaps, models, reg)

	res, err := svc.Run(context.Background(), request())
	var re *domain.RunError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, domain.PhaseSearching, re.Phase)
	assert.Equal(t, domain.ClassConfiguration, re.Class)
	assert.Contains(t, err.Error(), "fold 0")
	assert.Empty(t, res.RunID, "no partial result")
	assert.Nil(t, res.Candidates)
	assert.Empty(t, models.saved)
	assert.GreaterOrEqual(t, testutil.ToFloat64(svc.metrics.units.WithLabelValues("error")), 1.0)
}

func TestFitted_VocabularySeesTrainingRowsOnly(t *testing.T) {
	train := frame.MustNew(
		frame.CategoricalColumn("plan", []string{"basic", "gold", "basic", "gold", "basic", "gold"}, nil),
		frame.NumericColumn("logins", []float64{1, 20, 2, 25, 3, 18}),
	)
	test := frame.MustNew(
		frame.CategoricalColumn("plan", []string{"platinum", "basic"}, nil),
		frame.NumericColumn("logins", []float64{4, 22}),
	)
	fd := foldData{index: 0, trainX: train, trainY: []float64{1, 0, 1, 0, 1, 0}, testX: test, testY: []float64{1, 0}}

	p, err := fitted(context.Background(), churnmodel.Template(), grid.Candidate{}, fd)
	require.NoError(t, err)
	enc, ok := churnmodel.Encoder(p)
	require.True(t, ok)
	kept, ok := enc.Vocabulary().Retained("plan")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"basic", "gold"}, kept)
	assert.NotContains(t, kept, "platinum")

	score, err := evaluate(context.Background(), churnmodel.Template(), grid.Candidate{}, fd, metrics.NegLogLoss)
	require.NoError(t, err)
	assert.Less(t, score, 0.0)
}

func TestBestOf_TiesKeepEarliest(t *testing.T) {
	rs := []domain.CandidateResult{{Index: 2, Mean: 0.7}, {Index: 5, Mean: 0.8}, {Index: 9, Mean: 0.8}}
	assert.Equal(t, 1, bestOf(rs))
}
