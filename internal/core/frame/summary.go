package frame

import "math"

// Summary describes one column of a frame; Min and Max are NaN for
// categorical columns and for numeric columns with no values
type Summary struct {
	Column     string
	Kind       Kind
	PctMissing float64
	Unique     int
	Min        float64
	Max        float64
}

// Summarize returns one Summary per column in frame order. Unique counts
// distinct non-missing values
func Summarize(f *Frame) []Summary {
	out := make([]Summary, 0, f.Width())
	for _, c := range f.cols {
		s := Summary{Column: c.Name, Kind: c.Kind, Min: math.NaN(), Max: math.NaN()}
		n, missing := c.Len(), 0
		switch c.Kind {
		case Numeric:
			seen := map[float64]struct{}{}
			for _, v := range c.Num {
				if math.IsNaN(v) {
					missing++
					continue
				}
				seen[v] = struct{}{}
				if math.IsNaN(s.Min) || v < s.Min {
					s.Min = v
				}
				if math.IsNaN(s.Max) || v > s.Max {
					s.Max = v
				}
			}
			s.Unique = len(seen)
		default:
			seen := map[string]struct{}{}
			for i, v := range c.Str {
				if c.IsNull(i) {
					missing++
					continue
				}
				seen[v] = struct{}{}
			}
			s.Unique = len(seen)
		}
		if n > 0 {
			s.PctMissing = float64(missing) / float64(n)
		}
		out = append(out, s)
	}
	return out
}
