// Package temporal derives chronologically ordered validation folds from the
// snapshot date of every row
package temporal

import (
	"iter"
	"slices"
	"time"

	perr "churnlearn/internal/platform/errors"
)

// Fold is one sliding-window validation split
// TrainGroups holds the group indices [Index, Index+window) and TestGroup is
// the group right after them; Train and Test are row positions
type Fold struct {
	Index       int
	TrainGroups []int
	TestGroup   int
	Train       []int
	Test        []int
}

// Splitter maps each row's snapshot date to a group index and yields folds
// It is immutable after New and safe for concurrent use
type Splitter struct {
	window int
	groups []time.Time
	rowIdx []int
	byIdx  [][]int
}

// New ranks the distinct dates (oldest = 0) and validates the window
// It fails with a configuration error unless distinct-window is at least 2
func New(labels []time.Time, window int) (*Splitter, error) {
	if window < 1 {
		return nil, perr.Configurationf("temporal: window must be >= 1, got %d", window)
	}

	distinct := slices.Clone(labels)
	slices.SortFunc(distinct, func(a, b time.Time) int { return a.Compare(b) })
	distinct = slices.CompactFunc(distinct, func(a, b time.Time) bool { return a.Equal(b) })

	if n := len(distinct) - window; n <= 1 {
		return nil, perr.Configurationf(
			"temporal: %d distinct snapshot dates with window %d leave %d folds, need at least 2",
			len(distinct), window, max(n, 0))
	}

	s := &Splitter{
		window: window,
		groups: distinct,
		rowIdx: make([]int, len(labels)),
		byIdx:  make([][]int, len(distinct)),
	}
	for row, t := range labels {
		g, _ := slices.BinarySearchFunc(distinct, t, func(a, b time.Time) int { return a.Compare(b) })
		s.rowIdx[row] = g
		s.byIdx[g] = append(s.byIdx[g], row)
	}
	return s, nil
}

// NFolds is the number of validation folds, distinct groups minus window
func (s *Splitter) NFolds() int { return len(s.groups) - s.window }

// NGroups is the number of distinct snapshot dates
func (s *Splitter) NGroups() int { return len(s.groups) }

// Window is the number of consecutive groups each fold trains on
func (s *Splitter) Window() int { return s.window }

// Groups returns the distinct dates, oldest first
func (s *Splitter) Groups() []time.Time { return slices.Clone(s.groups) }

// GroupIndex returns the group index of a row
func (s *Splitter) GroupIndex(row int) int { return s.rowIdx[row] }

// Fold builds fold f; it panics when f is outside [0, NFolds)
func (s *Splitter) Fold(f int) Fold {
	if f < 0 || f >= s.NFolds() {
		panic("temporal: fold index out of range")
	}
	fold := Fold{Index: f, TestGroup: f + s.window}
	for g := f; g < f+s.window; g++ {
		fold.TrainGroups = append(fold.TrainGroups, g)
	}
	fold.Train = s.rows(f, f+s.window)
	fold.Test = s.rows(f+s.window, f+s.window+1)
	return fold
}

// Split yields every fold in ascending order; each range starts over
func (s *Splitter) Split() iter.Seq[Fold] {
	return func(yield func(Fold) bool) {
		for f := range s.NFolds() {
			if !yield(s.Fold(f)) {
				return
			}
		}
	}
}

// FinalTrainingSet returns the rows whose group index is >= NFolds, i.e. the
// newest window groups. It has no test counterpart
func (s *Splitter) FinalTrainingSet() []int {
	return s.rows(s.NFolds(), len(s.groups))
}

// rows returns the ascending row positions of groups [lo, hi)
func (s *Splitter) rows(lo, hi int) []int {
	var out []int
	for g := lo; g < hi; g++ {
		out = append(out, s.byIdx[g]...)
	}
	slices.Sort(out)
	return out
}
