package grid

import (
	"iter"
	"math"
	"math/rand/v2"
	"slices"

	perr "churnlearn/internal/platform/errors"
)

// maxSpace caps the enumerable size of a search space
const maxSpace = 1 << 31

// Candidate is one flat parameter assignment
type Candidate map[string]any

// Space is the cartesian product of a Bound in a fixed order: keys sorted,
// last key varying fastest. Index i always names the same candidate
type Space struct {
	keys   []string
	values []Values
	size   int
}

// NewSpace enumerates b; an option with no candidates is an error
// An empty Bound is a space holding one empty candidate
func NewSpace(b Bound) (*Space, error) {
	s := &Space{keys: b.Keys(), size: 1}
	for _, k := range s.keys {
		vals := b[k]
		if len(vals) == 0 {
			return nil, perr.InvalidArgf("grid: option %s has no candidates", k)
		}
		if s.size > maxSpace/len(vals) {
			return nil, perr.InvalidArgf("grid: search space exceeds %d candidates", maxSpace)
		}
		s.size *= len(vals)
		s.values = append(s.values, vals)
	}
	return s, nil
}

// Size is the number of candidates
func (s *Space) Size() int { return s.size }

// Keys returns the bound keys in enumeration order
func (s *Space) Keys() []string { return slices.Clone(s.keys) }

// At decodes candidate i, 0 <= i < Size
func (s *Space) At(i int) Candidate {
	c := make(Candidate, len(s.keys))
	for k := len(s.keys) - 1; k >= 0; k-- {
		n := len(s.values[k])
		c[s.keys[k]] = s.values[k][i%n]
		i /= n
	}
	return c
}

// All yields every candidate in enumeration order
func (s *Space) All() iter.Seq2[int, Candidate] {
	return func(yield func(int, Candidate) bool) {
		for i := range s.size {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

// Sample returns the enumeration indices of n distinct candidates drawn with
// a seeded PCG, ascending. n <= 0 or n >= Size returns every index
func (s *Space) Sample(n int, seed uint64) []int {
	if n <= 0 || n >= s.size {
		out := make([]int, s.size)
		for i := range out {
			out[i] = i
		}
		return out
	}

	// Floyd's algorithm: n draws, no rejection loop
	r := rand.New(rand.NewPCG(seed, seed^math.MaxUint32))
	chosen := make(map[int]struct{}, n)
	for j := s.size - n; j < s.size; j++ {
		t := r.IntN(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
	}
	out := make([]int, 0, n)
	for i := range chosen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}
