// Package frame implements the small columnar table every training step
// reads and writes
package frame

import (
	"fmt"
	"math"
	"slices"

	perr "churnlearn/internal/platform/errors"

	"gonum.org/v1/gonum/mat"
)

// Kind is the storage kind of a column
type Kind uint8

const (
	// Numeric columns hold float64 values; NaN marks a missing cell
	Numeric Kind = iota
	// Categorical columns hold string values with a parallel null mask
	Categorical
)

// String returns the kind name used in schemas and errors
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*k = Numeric
	case "categorical":
		*k = Categorical
	default:
		return perr.InvalidArgf("frame: unknown column kind %q", b)
	}
	return nil
}

// Column is one named column. Exactly one of Num or Str is populated
// Null is only consulted for categorical columns; nil means no nulls
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
	Null []bool
}

// NumericColumn builds a numeric column
func NumericColumn(name string, v []float64) Column {
	return Column{Name: name, Kind: Numeric, Num: v}
}

// CategoricalColumn builds a categorical column; null may be nil
func CategoricalColumn(name string, v []string, null []bool) Column {
	return Column{Name: name, Kind: Categorical, Str: v, Null: null}
}

// Len returns the number of cells
func (c Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Num)
	}
	return len(c.Str)
}

// IsNull reports whether cell i is missing
func (c Column) IsNull(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Num[i])
	}
	return c.Null != nil && c.Null[i]
}

func (c Column) take(rows []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		out.Num = make([]float64, len(rows))
		for i, r := range rows {
			out.Num[i] = c.Num[r]
		}
		return out
	}
	out.Str = make([]string, len(rows))
	for i, r := range rows {
		out.Str[i] = c.Str[r]
	}
	if c.Null != nil {
		out.Null = make([]bool, len(rows))
		for i, r := range rows {
			out.Null[i] = c.Null[r]
		}
	}
	return out
}

func (c Column) clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	out.Num = slices.Clone(c.Num)
	out.Str = slices.Clone(c.Str)
	out.Null = slices.Clone(c.Null)
	return out
}

// Frame is an immutable-by-convention table: operations return new frames
// and never write to the receiver's columns
type Frame struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a frame; columns must have unique names and equal lengths
func New(cols ...Column) (*Frame, error) {
	f := &Frame{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, perr.InvalidArgf("frame: column %d has no name", i)
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, perr.InvalidArgf("frame: duplicate column %q", c.Name)
		}
		if c.Kind == Categorical && c.Null != nil && len(c.Null) != len(c.Str) {
			return nil, perr.InvalidArgf("frame: column %q null mask has %d cells, want %d", c.Name, len(c.Null), len(c.Str))
		}
		if i == 0 {
			f.rows = c.Len()
		} else if c.Len() != f.rows {
			return nil, perr.InvalidArgf("frame: column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
		}
		f.index[c.Name] = i
	}
	return f, nil
}

// Empty returns a frame with no columns and the given row count
func Empty(rows int) *Frame {
	return &Frame{index: map[string]int{}, rows: rows}
}

// MustNew is New for fixtures and literals; it panics on error
func MustNew(cols ...Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Rows returns the row count
func (f *Frame) Rows() int { return f.rows }

// Width returns the column count
func (f *Frame) Width() int { return len(f.cols) }

// Names returns the column names in order
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Col returns the named column; callers must not modify its slices
func (f *Frame) Col(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, false
	}
	return f.cols[i], true
}

// At returns column i; callers must not modify its slices
func (f *Frame) At(i int) Column { return f.cols[i] }

// Take returns a new frame holding the given rows, in the given order
func (f *Frame) Take(rows []int) *Frame {
	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(rows)
	}
	return &Frame{cols: cols, index: f.index, rows: len(rows)}
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.clone()
	}
	return &Frame{cols: cols, index: f.index, rows: f.rows}
}

// Select returns a frame with only the named columns, in the given order
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := f.Col(n)
		if !ok {
			return nil, perr.InvalidArgf("frame: no column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns a frame without the named columns; unknown names are ignored
func (f *Frame) Drop(names ...string) *Frame {
	cols := make([]Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !slices.Contains(names, c.Name) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return Empty(f.rows)
	}
	out, _ := New(cols...)
	return out
}

// Concat stacks frames row-wise. Columns are matched by name and the result
// holds the union in first-seen order; cells a frame lacks become missing
// A column that is numeric in one frame and categorical in another is an error
func Concat(frames ...*Frame) (*Frame, error) {
	var (
		order []string
		kinds = map[string]Kind{}
		total int
	)
	for _, f := range frames {
		for _, c := range f.cols {
			k, seen := kinds[c.Name]
			if !seen {
				kinds[c.Name] = c.Kind
				order = append(order, c.Name)
				continue
			}
			if k != c.Kind {
				return nil, perr.InvalidArgf("frame: column %q is %s in one frame and %s in another", c.Name, k, c.Kind)
			}
		}
		total += f.rows
	}

	cols := make([]Column, len(order))
	for i, name := range order {
		out := Column{Name: name, Kind: kinds[name]}
		if out.Kind == Numeric {
			out.Num = make([]float64, 0, total)
		} else {
			out.Str = make([]string, 0, total)
			out.Null = make([]bool, 0, total)
		}
		for _, f := range frames {
			c, ok := f.Col(name)
			switch {
			case out.Kind == Numeric && ok:
				out.Num = append(out.Num, c.Num...)
			case out.Kind == Numeric:
				for range f.rows {
					out.Num = append(out.Num, math.NaN())
				}
			case ok:
				out.Str = append(out.Str, c.Str...)
				for r := range f.rows {
					out.Null = append(out.Null, c.IsNull(r))
				}
			default:
				for range f.rows {
					out.Str = append(out.Str, "")
					out.Null = append(out.Null, true)
				}
			}
		}
		cols[i] = out
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = total
	return out, nil
}

// Matrix copies an all-numeric frame into a rows x width dense matrix
func (f *Frame) Matrix() (*mat.Dense, error) {
	if f.rows == 0 || len(f.cols) == 0 {
		return nil, perr.InvalidArgf("frame: cannot build a matrix from an empty frame (%dx%d)", f.rows, len(f.cols))
	}
	m := mat.NewDense(f.rows, len(f.cols), nil)
	for j, c := range f.cols {
		if c.Kind != Numeric {
			return nil, perr.InvalidArgf("frame: column %q is %s, want numeric", c.Name, c.Kind)
		}
		m.SetCol(j, c.Num)
	}
	return m, nil
}

// Categorical reports the names of the categorical columns
func (f *Frame) Categorical() []string {
	var out []string
	for _, c := range f.cols {
		if c.Kind == Categorical {
			out = append(out, c.Name)
		}
	}
	return out
}
