package temporal

import (
	"slices"
	"testing"
	"time"

	perr "churnlearn/internal/platform/errors"
	kit "churnlearn/internal/platform/testkit"
)

// rowsPerGroup labels n rows for each date, interleaved so row order is not
// group order
func rowsPerGroup(dates []time.Time, n int) []time.Time {
	var out []time.Time
	for range n {
		for i := len(dates) - 1; i >= 0; i-- {
			out = append(out, dates[i])
		}
	}
	return out
}

func TestNew_FoldCountAndConfigurationError(t *testing.T) {
	cases := []struct {
		g, w    int
		wantErr bool
	}{
		{g: 6, w: 4},
		{g: 3, w: 2, wantErr: true},
		{g: 3, w: 1},
		{g: 2, w: 1, wantErr: true},
		{g: 4, w: 4, wantErr: true},
		{g: 2, w: 5, wantErr: true},
		{g: 10, w: 3},
		{g: 5, w: 0, wantErr: true},
	}
	for _, tc := range cases {
		labels := rowsPerGroup(kit.Weekly(kit.Day(2018, 3, 5), tc.g), 2)
		s, err := New(labels, tc.w)
		if tc.wantErr {
			if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
				t.Fatalf("g=%d w=%d: want configuration error, got %v", tc.g, tc.w, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("g=%d w=%d: %v", tc.g, tc.w, err)
		}
		if s.NFolds() != tc.g-tc.w {
			t.Fatalf("g=%d w=%d: NFolds = %d", tc.g, tc.w, s.NFolds())
		}
	}
}

func TestSplit_SixWeeklySnapshotsWindowFour(t *testing.T) {
	dates := kit.Weekly(kit.Day(2018, 3, 5), 6)
	labels := rowsPerGroup(dates, 3)
	s, err := New(labels, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var folds []Fold
	for f := range s.Split() {
		folds = append(folds, f)
	}
	if len(folds) != 2 {
		t.Fatalf("folds = %d, want 2", len(folds))
	}
	if !slices.Equal(folds[0].TrainGroups, []int{0, 1, 2, 3}) || folds[0].TestGroup != 4 {
		t.Fatalf("fold 0 = %v -> %d", folds[0].TrainGroups, folds[0].TestGroup)
	}
	if !slices.Equal(folds[1].TrainGroups, []int{1, 2, 3, 4}) || folds[1].TestGroup != 5 {
		t.Fatalf("fold 1 = %v -> %d", folds[1].TrainGroups, folds[1].TestGroup)
	}

	for _, f := range folds {
		for _, r := range f.Train {
			if g := s.GroupIndex(r); g < f.Index || g >= f.Index+4 {
				t.Fatalf("fold %d: train row %d in group %d", f.Index, r, g)
			}
		}
		for _, r := range f.Test {
			if s.GroupIndex(r) != f.TestGroup {
				t.Fatalf("fold %d: test row %d in wrong group", f.Index, r)
			}
		}
		if len(f.Train) != 12 || len(f.Test) != 3 {
			t.Fatalf("fold %d sizes = %d/%d", f.Index, len(f.Train), len(f.Test))
		}
	}

	final := s.FinalTrainingSet()
	if len(final) != 12 {
		t.Fatalf("final rows = %d", len(final))
	}
	for _, r := range final {
		if s.GroupIndex(r) < 2 {
			t.Fatalf("final set holds row %d of group %d", r, s.GroupIndex(r))
		}
	}
}

func TestSplit_TestGroupsDisjointAndCoverage(t *testing.T) {
	dates := kit.Weekly(kit.Day(2019, 1, 7), 9)
	s, err := New(rowsPerGroup(dates, 1), 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seenTest := map[int]bool{}
	used := map[int]bool{}
	for f := range s.Split() {
		if f.TestGroup != f.Index+3 {
			t.Fatalf("fold %d test group %d", f.Index, f.TestGroup)
		}
		if seenTest[f.TestGroup] {
			t.Fatalf("test group %d repeated", f.TestGroup)
		}
		seenTest[f.TestGroup] = true
		used[f.TestGroup] = true
		for _, g := range f.TrainGroups {
			used[g] = true
		}
	}
	for g := range s.NGroups() {
		if !used[g] {
			t.Fatalf("group %d never used", g)
		}
	}
}

func TestNew_EqualDatesCollapse(t *testing.T) {
	d := kit.Weekly(kit.Day(2018, 3, 5), 4)
	// same instant in another zone is the same group
	labels := []time.Time{d[0], d[0].In(time.FixedZone("x", 3600)), d[1], d[2], d[3], d[3]}
	s, err := New(labels, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.NGroups() != 4 {
		t.Fatalf("groups = %d", s.NGroups())
	}
	if s.GroupIndex(0) != 0 || s.GroupIndex(1) != 0 || s.GroupIndex(5) != 3 {
		t.Fatalf("unexpected group indices")
	}
	if got := s.Groups(); !got[0].Equal(d[0]) || !got[3].Equal(d[3]) {
		t.Fatalf("groups not ascending: %v", got)
	}
}

func TestSplit_StopsEarlyAndRestarts(t *testing.T) {
	s, err := New(rowsPerGroup(kit.Weekly(kit.Day(2018, 3, 5), 6), 1), 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := 0
	for range s.Split() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("early stop n = %d", n)
	}
	var again []int
	for f := range s.Split() {
		again = append(again, f.Index)
	}
	if !slices.Equal(again, []int{0, 1, 2, 3}) {
		t.Fatalf("restart = %v", again)
	}
	if got := s.Fold(3); got.TestGroup != 5 {
		t.Fatalf("Fold(3) test group = %d", got.TestGroup)
	}
	kit.MustPanic(t, func() { _ = s.Fold(4) })
}
