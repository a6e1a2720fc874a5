package encoder

import (
	"slices"

	"churnlearn/internal/core/frame"
)

const (
	// OtherSuffix names the bucket for values outside the retained set
	OtherSuffix = "other"
	// MissingSuffix names the indicator for null cells
	MissingSuffix = "missing"
)

// Source is one input column as seen at fit time
type Source struct {
	Name     string     `json:"name"`
	Kind     frame.Kind `json:"kind"`
	Retained []string   `json:"retained,omitempty"`
}

// Vocabulary is the immutable result of a fit: the input columns in order,
// the retained values of each categorical one, and the output column order
type Vocabulary struct {
	sources []Source
	columns []string
	index   map[string]map[string]int
}

func newVocabulary(sources []Source) *Vocabulary {
	v := &Vocabulary{sources: sources, index: map[string]map[string]int{}}
	for _, s := range sources {
		if s.Kind == frame.Numeric {
			v.columns = append(v.columns, s.Name)
			continue
		}
		pos := make(map[string]int, len(s.Retained))
		for i, val := range s.Retained {
			pos[val] = i
			v.columns = append(v.columns, s.Name+"_"+val)
		}
		v.index[s.Name] = pos
		v.columns = append(v.columns, s.Name+"_"+OtherSuffix, s.Name+"_"+MissingSuffix)
	}
	return v
}

// Columns returns the output column names in their fixed order
func (v *Vocabulary) Columns() []string { return slices.Clone(v.columns) }

// Sources returns the input columns the vocabulary was fit on
func (v *Vocabulary) Sources() []Source {
	out := make([]Source, len(v.sources))
	for i, s := range v.sources {
		s.Retained = slices.Clone(s.Retained)
		out[i] = s
	}
	return out
}

// Retained returns the retained values of a categorical column, ascending
func (v *Vocabulary) Retained(col string) ([]string, bool) {
	for _, s := range v.sources {
		if s.Name == col && s.Kind == frame.Categorical {
			return slices.Clone(s.Retained), true
		}
	}
	return nil, false
}

// slot returns the one-hot offset of val within its column block
func (v *Vocabulary) slot(s Source, val string, null bool) int {
	switch {
	case null:
		return len(s.Retained) + 1
	default:
		if i, ok := v.index[s.Name][val]; ok {
			return i
		}
		return len(s.Retained)
	}
}

type vocabularyJSON struct {
	Sources []Source `json:"sources"`
	Columns []string `json:"columns"`
}
