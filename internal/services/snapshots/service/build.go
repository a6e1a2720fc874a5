package service

import (
	"math"
	"strconv"
	"time"

	"churnlearn/internal/core/frame"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/services/snapshots/domain"
)

// Build splits a raw snapshot table into keys, labels and features
// The label column is optional; key, drop and eligibility columns never
// become features. Ineligible rows are removed before anything else sees them
func Build(date time.Time, raw *frame.Frame, cols domain.Columns) (domain.Snapshot, error) {
	keep, err := eligibleRows(raw, cols.Eligible)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if keep != nil {
		raw = raw.Take(keep)
	}

	kc, ok := raw.Col(cols.Key)
	if !ok {
		return domain.Snapshot{}, perr.Configurationf("snapshot %s: key column %q missing", date.Format(time.DateOnly), cols.Key)
	}
	keys, err := keysOf(kc)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var labels []float64
	if lc, ok := raw.Col(cols.Label); ok && cols.Label != "" {
		if labels, err = labelsOf(lc); err != nil {
			return domain.Snapshot{}, err
		}
	}

	drop := append([]string{cols.Key, cols.Label}, cols.Drop...)
	drop = append(drop, cols.Eligible...)
	return domain.Snapshot{
		Date:     date,
		Keys:     keys,
		Features: raw.Drop(drop...),
		Labels:   labels,
	}, nil
}

func keysOf(c frame.Column) ([]string, error) {
	out := make([]string, c.Len())
	for i := range out {
		if c.IsNull(i) {
			return nil, perr.InvalidArgf("row %d has no %s", i, c.Name)
		}
		if c.Kind == frame.Categorical {
			out[i] = c.Str[i]
			continue
		}
		out[i] = strconv.FormatFloat(c.Num[i], 'f', -1, 64)
	}
	return out, nil
}

func labelsOf(c frame.Column) ([]float64, error) {
	if c.Kind != frame.Numeric {
		return nil, perr.InvalidArgf("label column %q is not boolean", c.Name)
	}
	out := make([]float64, len(c.Num))
	for i, v := range c.Num {
		if v != 0 && v != 1 {
			if math.IsNaN(v) {
				return nil, perr.InvalidArgf("row %d has no %s", i, c.Name)
			}
			return nil, perr.InvalidArgf("row %d: %s = %g, want 0 or 1", i, c.Name, v)
		}
		out[i] = v
	}
	return out, nil
}

// eligibleRows returns the rows where every flag column is 1, or nil when
// there are no flags
func eligibleRows(f *frame.Frame, flags []string) ([]int, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	cols := make([]frame.Column, len(flags))
	for j, name := range flags {
		c, ok := f.Col(name)
		if !ok {
			return nil, perr.Configurationf("eligibility column %q missing", name)
		}
		if c.Kind != frame.Numeric {
			return nil, perr.Configurationf("eligibility column %q is not boolean", name)
		}
		cols[j] = c
	}
	keep := make([]int, 0, f.Rows())
rows:
	for i := range f.Rows() {
		for _, c := range cols {
			if c.Num[i] != 1 {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return keep, nil
}
