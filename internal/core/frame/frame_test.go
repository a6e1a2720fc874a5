package frame

import (
	"math"
	"testing"
	"time"

	perr "churnlearn/internal/platform/errors"
)

func sample() *Frame {
	return MustNew(
		NumericColumn("tenure", []float64{1, 2, 3, math.NaN()}),
		CategoricalColumn("plan", []string{"gold", "", "basic", "gold"}, []bool{false, true, false, false}),
	)
}

func TestNew_RejectsRaggedAndDuplicate(t *testing.T) {
	if _, err := New(NumericColumn("a", []float64{1}), NumericColumn("b", []float64{1, 2})); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("ragged columns should be invalid, got %v", err)
	}
	if _, err := New(NumericColumn("a", []float64{1}), NumericColumn("a", []float64{2})); err == nil {
		t.Fatalf("duplicate names should fail")
	}
	if _, err := New(CategoricalColumn("c", []string{"x"}, []bool{true, false})); err == nil {
		t.Fatalf("mismatched null mask should fail")
	}
}

func TestTake_CopiesRows(t *testing.T) {
	f := sample()
	sub := f.Take([]int{2, 0})
	if sub.Rows() != 2 {
		t.Fatalf("rows = %d", sub.Rows())
	}
	plan, _ := sub.Col("plan")
	if plan.Str[0] != "basic" || plan.Str[1] != "gold" {
		t.Fatalf("unexpected plan: %v", plan.Str)
	}
	plan.Str[0] = "mutated"
	orig, _ := f.Col("plan")
	if orig.Str[2] != "basic" {
		t.Fatalf("Take must not alias the source")
	}
}

func TestIsNull(t *testing.T) {
	f := sample()
	if !f.At(0).IsNull(3) || f.At(0).IsNull(0) {
		t.Fatalf("numeric null detection wrong")
	}
	if !f.At(1).IsNull(1) || f.At(1).IsNull(0) {
		t.Fatalf("categorical null detection wrong")
	}
}

func TestSelectAndDrop(t *testing.T) {
	f := sample()
	s, err := f.Select("plan")
	if err != nil || s.Width() != 1 || s.Names()[0] != "plan" {
		t.Fatalf("Select = %v, %v", s, err)
	}
	if _, err := f.Select("nope"); err == nil {
		t.Fatalf("Select unknown should fail")
	}
	d := f.Drop("plan", "nope")
	if d.Width() != 1 || d.Names()[0] != "tenure" {
		t.Fatalf("Drop = %v", d.Names())
	}
	if empty := f.Drop("plan", "tenure"); empty.Rows() != 4 {
		t.Fatalf("dropping every column keeps the row count, got %d", empty.Rows())
	}
}

func TestConcat_UnionFillsMissing(t *testing.T) {
	a := MustNew(NumericColumn("x", []float64{1}), CategoricalColumn("c", []string{"u"}, nil))
	b := MustNew(NumericColumn("x", []float64{2}), NumericColumn("y", []float64{5}))

	out, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.Rows() != 2 || out.Width() != 3 {
		t.Fatalf("shape = %dx%d", out.Rows(), out.Width())
	}
	c, _ := out.Col("c")
	if c.IsNull(0) || !c.IsNull(1) {
		t.Fatalf("c nulls = %v", c.Null)
	}
	y, _ := out.Col("y")
	if !math.IsNaN(y.Num[0]) || y.Num[1] != 5 {
		t.Fatalf("y = %v", y.Num)
	}
}

func TestConcat_KindConflict(t *testing.T) {
	a := MustNew(NumericColumn("x", []float64{1}))
	b := MustNew(CategoricalColumn("x", []string{"1"}, nil))
	if _, err := Concat(a, b); err == nil {
		t.Fatalf("kind conflict should fail")
	}
}

func TestMatrix(t *testing.T) {
	f := MustNew(NumericColumn("a", []float64{1, 2}), NumericColumn("b", []float64{3, 4}))
	m, err := f.Matrix()
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if m.At(1, 0) != 2 || m.At(0, 1) != 3 {
		t.Fatalf("unexpected matrix values")
	}
	if _, err := sample().Matrix(); err == nil {
		t.Fatalf("categorical frame should not convert")
	}
}

func TestFromRecords_InfersKinds(t *testing.T) {
	f, err := FromRecords(
		[]string{"id", "tenure", "active", "plan"},
		[][]string{
			{"c1", "3", "true", "gold"},
			{"c2", "NA", "false", ""},
			{"c3", "1.5", "", "basic"},
		},
	)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	if got := f.Categorical(); len(got) != 2 || got[0] != "id" || got[1] != "plan" {
		t.Fatalf("categorical = %v", got)
	}
	tenure, _ := f.Col("tenure")
	if tenure.Num[0] != 3 || !math.IsNaN(tenure.Num[1]) {
		t.Fatalf("tenure = %v", tenure.Num)
	}
	active, _ := f.Col("active")
	if active.Kind != Numeric || active.Num[0] != 1 || active.Num[1] != 0 || !math.IsNaN(active.Num[2]) {
		t.Fatalf("active = %v", active.Num)
	}
	plan, _ := f.Col("plan")
	if !plan.IsNull(1) {
		t.Fatalf("empty cell should be null")
	}

	if _, err := FromRecords([]string{"a", "b"}, [][]string{{"1"}}); err == nil {
		t.Fatalf("short record should fail")
	}
}

func TestFromValues_DriverShapes(t *testing.T) {
	day := time.Date(2018, 3, 5, 0, 0, 0, 0, time.UTC)
	f, err := FromValues(
		[]string{"n", "b", "s", "when", "mixed"},
		[][]any{
			{int64(2), true, "gold", day, "x"},
			{nil, false, nil, nil, 3.0},
		},
	)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	n, _ := f.Col("n")
	if n.Kind != Numeric || n.Num[0] != 2 || !math.IsNaN(n.Num[1]) {
		t.Fatalf("n = %+v", n)
	}
	b, _ := f.Col("b")
	if b.Kind != Numeric || b.Num[0] != 1 {
		t.Fatalf("b = %+v", b)
	}
	s, _ := f.Col("s")
	if s.Kind != Categorical || !s.IsNull(1) {
		t.Fatalf("s = %+v", s)
	}
	when, _ := f.Col("when")
	if when.Str[0] != "2018-03-05T00:00:00Z" {
		t.Fatalf("when = %v", when.Str)
	}
	mixed, _ := f.Col("mixed")
	if mixed.Kind != Categorical || mixed.Str[1] != "3" {
		t.Fatalf("mixed = %+v", mixed)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sample())
	if len(got) != 2 {
		t.Fatalf("got %d summaries", len(got))
	}
	ten, plan := got[0], got[1]
	if ten.Column != "tenure" || ten.Kind != Numeric || ten.Unique != 3 || ten.Min != 1 || ten.Max != 3 || ten.PctMissing != 0.25 {
		t.Fatalf("tenure summary = %+v", ten)
	}
	if plan.Kind != Categorical || plan.Unique != 2 || plan.PctMissing != 0.25 || !math.IsNaN(plan.Min) {
		t.Fatalf("plan summary = %+v", plan)
	}

	empty := Summarize(MustNew(NumericColumn("x", []float64{math.NaN()})))
	if !math.IsNaN(empty[0].Min) || empty[0].PctMissing != 1 {
		t.Fatalf("all-missing summary = %+v", empty[0])
	}
}
