package encoder

import (
	"encoding/json"
	"math"
	"testing"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeat builds a categorical column with the given value counts
func repeat(name string, counts map[string]int, order ...string) frame.Column {
	var vals []string
	for _, v := range order {
		for range counts[v] {
			vals = append(vals, v)
		}
	}
	return frame.CategoricalColumn(name, vals, nil)
}

func cell(t *testing.T, f *frame.Frame, col string, row int) float64 {
	t.Helper()
	c, ok := f.Col(col)
	require.Truef(t, ok, "missing column %s in %v", col, f.Names())
	return c.Num[row]
}

func TestFit_RetainsTopValuesAndOrdersColumns(t *testing.T) {
	col := repeat("col", map[string]int{"A": 100, "B": 80, "C": 5, "D": 3}, "D", "C", "B", "A")
	X := frame.MustNew(col)

	e := New(2)
	require.NoError(t, e.Fit(X))

	assert.Equal(t, []string{"col_A", "col_B", "col_other", "col_missing"}, e.Vocabulary().Columns())
	kept, ok := e.Vocabulary().Retained("col")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, kept)

	onlyC := frame.MustNew(frame.CategoricalColumn("col", []string{"C"}, nil))
	out, err := e.Transform(onlyC)
	require.NoError(t, err)
	assert.Equal(t, []string{"col_A", "col_B", "col_other", "col_missing"}, out.Names())
	assert.Equal(t, 0.0, cell(t, out, "col_A", 0))
	assert.Equal(t, 0.0, cell(t, out, "col_B", 0))
	assert.Equal(t, 1.0, cell(t, out, "col_other", 0))
	assert.Equal(t, 0.0, cell(t, out, "col_missing", 0))
}

func TestFit_TiesBrokenByValue(t *testing.T) {
	col := repeat("c", map[string]int{"z": 2, "b": 2, "a": 2, "q": 1}, "z", "q", "b", "a")
	e := New(2)
	require.NoError(t, e.Fit(frame.MustNew(col)))
	kept, _ := e.Vocabulary().Retained("c")
	assert.Equal(t, []string{"a", "b"}, kept)
}

func TestFit_AllValuesKeptWhenUnderBound(t *testing.T) {
	col := frame.CategoricalColumn("plan", []string{"gold", "basic", "gold"}, nil)
	e := New(0)
	assert.Equal(t, DefaultMaxCategories, e.MaxCategories())
	require.NoError(t, e.Fit(frame.MustNew(col)))
	assert.Equal(t, []string{"plan_basic", "plan_gold", "plan_other", "plan_missing"}, e.OutputColumns())
}

func TestFit_BucketNamesNeverRetained(t *testing.T) {
	col := frame.CategoricalColumn("c", []string{"other", "other", "missing", "x"}, nil)
	e := New(5)
	require.NoError(t, e.Fit(frame.MustNew(col)))
	assert.Equal(t, []string{"c_x", "c_other", "c_missing"}, e.OutputColumns())

	out, err := e.Transform(frame.MustNew(col))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cell(t, out, "c_other", 0))
	assert.Equal(t, 1.0, cell(t, out, "c_other", 2))
	assert.Equal(t, 0.0, cell(t, out, "c_missing", 2))
}

func TestTransform_ColumnsStableAcrossSubsets(t *testing.T) {
	X := frame.MustNew(
		frame.NumericColumn("tenure", []float64{1, 2, 3, 4, 5}),
		frame.CategoricalColumn("plan", []string{"gold", "basic", "", "gold", "trial"}, []bool{false, false, true, false, false}),
		frame.CategoricalColumn("region", []string{"eu", "us", "us", "apac", "eu"}, nil),
	)
	e := New(2)
	full, err := e.FitTransform(X)
	require.NoError(t, err)

	for _, rows := range [][]int{{0}, {2}, {1, 3}, {4, 2, 0}, {}} {
		out, err := e.Transform(X.Take(rows))
		require.NoError(t, err)
		assert.Equal(t, full.Names(), out.Names(), "rows %v", rows)
		assert.Equal(t, len(rows), out.Rows())
	}
	assert.Equal(t, "tenure", full.Names()[0])
}

func TestTransform_NullsUnknownsAndMissingColumns(t *testing.T) {
	train := frame.MustNew(
		frame.NumericColumn("tenure", []float64{1, 2}),
		frame.CategoricalColumn("plan", []string{"gold", "basic"}, nil),
	)
	e := New(5)
	require.NoError(t, e.Fit(train))

	batch := frame.MustNew(
		frame.CategoricalColumn("plan", []string{"", "platinum"}, []bool{true, false}),
		frame.NumericColumn("extra", []float64{9, 9}),
	)
	out, err := e.Transform(batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenure", "plan_basic", "plan_gold", "plan_other", "plan_missing"}, out.Names())
	assert.Equal(t, 1.0, cell(t, out, "plan_missing", 0))
	assert.Equal(t, 1.0, cell(t, out, "plan_other", 1))
	assert.Equal(t, 0.0, cell(t, out, "tenure", 1))

	err = e.CheckSchema(batch)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeSchemaDrift), "got %v", err)
	assert.Contains(t, err.Error(), "tenure")
	assert.NoError(t, e.CheckSchema(train))
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	X := frame.MustNew(frame.CategoricalColumn("c", []string{"a", "b", "zzz"}, nil))
	e := New(1)
	require.NoError(t, e.Fit(X.Take([]int{0})))
	_, err := e.Transform(X)
	require.NoError(t, err)
	c, _ := X.Col("c")
	assert.Equal(t, []string{"a", "b", "zzz"}, c.Str)
}

func TestTransform_KindMismatch(t *testing.T) {
	e := New(5)
	require.NoError(t, e.Fit(frame.MustNew(
		frame.NumericColumn("n", []float64{1}),
		frame.CategoricalColumn("c", []string{"3"}, nil),
	)))
	out, err := e.Transform(frame.MustNew(
		frame.CategoricalColumn("n", []string{"2.5", "x"}, nil),
		frame.NumericColumn("c", []float64{3, math.NaN()}),
	))
	require.NoError(t, err)
	assert.Equal(t, 2.5, cell(t, out, "n", 0))
	assert.True(t, math.IsNaN(cell(t, out, "n", 1)))
	assert.Equal(t, 1.0, cell(t, out, "c_3", 0))
	assert.Equal(t, 1.0, cell(t, out, "c_missing", 1))
}

func TestTransform_BeforeFit(t *testing.T) {
	_, err := New(3).Transform(frame.MustNew(frame.NumericColumn("n", []float64{1})))
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFitted), "got %v", err)
	assert.True(t, perr.IsCode(New(3).CheckSchema(frame.Empty(0)), perr.ErrorCodeNotFitted))
}

func TestFit_NoCategoricalColumnsPassesThrough(t *testing.T) {
	X := frame.MustNew(frame.NumericColumn("a", []float64{1, 2}), frame.NumericColumn("b", []float64{3, 4}))
	e := New(3)
	out, err := e.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Names())
	assert.Equal(t, 4.0, cell(t, out, "b", 1))
}

func TestFit_CollidingOutputName(t *testing.T) {
	X := frame.MustNew(
		frame.NumericColumn("plan_gold", []float64{1}),
		frame.CategoricalColumn("plan", []string{"gold"}, nil),
	)
	assert.Error(t, New(3).Fit(X))
}

func TestCloneIsUnfit(t *testing.T) {
	e := New(4)
	require.NoError(t, e.Fit(frame.MustNew(frame.CategoricalColumn("c", []string{"a"}, nil))))
	c := e.Clone().(*Encoder)
	assert.False(t, c.Fitted())
	assert.Equal(t, 4, c.MaxCategories())
	assert.True(t, e.Fitted())
}

func TestSetParam(t *testing.T) {
	e := New(3)
	require.NoError(t, e.SetParam("max_categories", 7.0))
	assert.Equal(t, map[string]any{"max_categories": 7}, e.Params())
	assert.Error(t, e.SetParam("max_categories", 0))
	assert.Error(t, e.SetParam("max_categories", 2.5))
	assert.True(t, perr.IsCode(e.SetParam("nope", 1), perr.ErrorCodeInvalidArgument))
}

func TestJSONRoundTrip(t *testing.T) {
	X := frame.MustNew(
		frame.NumericColumn("tenure", []float64{1, 2, 3}),
		frame.CategoricalColumn("plan", []string{"gold", "basic", "gold"}, nil),
	)
	e := New(1)
	require.NoError(t, e.Fit(X))

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var back Encoder
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, e.OutputColumns(), back.OutputColumns())
	assert.Equal(t, e.Vocabulary().Sources(), back.Vocabulary().Sources())

	want, _ := e.Transform(X)
	got, err := back.Transform(X)
	require.NoError(t, err)
	for i := range want.Width() {
		assert.Equal(t, want.At(i), got.At(i))
	}
}

func TestUnmarshal_RejectsTamperedColumns(t *testing.T) {
	raw := `{"max_categories":2,"vocabulary":{"sources":[{"name":"c","kind":"categorical","retained":["a"]}],"columns":["c_other","c_a","c_missing"]}}`
	var e Encoder
	err := json.Unmarshal([]byte(raw), &e)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeSchemaDrift), "got %v", err)

	var unfit Encoder
	require.NoError(t, json.Unmarshal([]byte(`{"max_categories":4}`), &unfit))
	assert.False(t, unfit.Fitted())
}
