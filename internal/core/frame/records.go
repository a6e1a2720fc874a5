package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	perr "churnlearn/internal/platform/errors"
)

var naTokens = map[string]struct{}{"": {}, "NA": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {}}

// IsNA reports whether a raw text cell means "no value"
func IsNA(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

// ParseCell converts a text cell to a float; booleans map to 0/1
func ParseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FromRecords builds a frame from text records, e.g. a CSV body
// A column is numeric when every non-NA cell parses as a number or boolean;
// otherwise it is categorical and NA cells are null
func FromRecords(header []string, records [][]string) (*Frame, error) {
	cols := make([]Column, len(header))
	for j, name := range header {
		numeric := true
		for i, rec := range records {
			if len(rec) != len(header) {
				return nil, perr.InvalidArgf("frame: record %d has %d fields, want %d", i, len(rec), len(header))
			}
			if IsNA(rec[j]) {
				continue
			}
			if _, ok := ParseCell(rec[j]); !ok {
				numeric = false
				break
			}
		}

		if numeric {
			v := make([]float64, len(records))
			for i, rec := range records {
				if IsNA(rec[j]) {
					v[i] = math.NaN()
					continue
				}
				v[i], _ = ParseCell(rec[j])
			}
			cols[j] = NumericColumn(name, v)
			continue
		}

		s := make([]string, len(records))
		null := make([]bool, len(records))
		for i, rec := range records {
			if IsNA(rec[j]) {
				null[i] = true
				continue
			}
			s[i] = rec[j]
		}
		cols[j] = CategoricalColumn(name, s, null)
	}
	return New(cols...)
}

// FromValues builds a frame from driver-scanned rows
// Float, int and bool columns become numeric; strings, bytes and times become
// categorical; nil is missing; a column mixing both shapes is categorical
func FromValues(names []string, rows [][]any) (*Frame, error) {
	cols := make([]Column, len(names))
	for j, name := range names {
		numeric := true
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, perr.InvalidArgf("frame: row %d has %d values, want %d", i, len(row), len(names))
			}
			if _, ok, isNil := numberOf(row[j]); !ok && !isNil {
				numeric = false
				break
			}
		}

		if numeric {
			v := make([]float64, len(rows))
			for i, row := range rows {
				f, ok, _ := numberOf(row[j])
				if !ok {
					f = math.NaN()
				}
				v[i] = f
			}
			cols[j] = NumericColumn(name, v)
			continue
		}

		s := make([]string, len(rows))
		null := make([]bool, len(rows))
		for i, row := range rows {
			if row[j] == nil {
				null[i] = true
				continue
			}
			s[i] = textOf(row[j])
		}
		cols[j] = CategoricalColumn(name, s, null)
	}
	return New(cols...)
}

func numberOf(v any) (f float64, ok bool, isNil bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, true
	case float64:
		return x, true, false
	case float32:
		return float64(x), true, false
	case int:
		return float64(x), true, false
	case int8:
		return float64(x), true, false
	case int16:
		return float64(x), true, false
	case int32:
		return float64(x), true, false
	case int64:
		return float64(x), true, false
	case uint8:
		return float64(x), true, false
	case uint16:
		return float64(x), true, false
	case uint32:
		return float64(x), true, false
	case uint64:
		return float64(x), true, false
	case bool:
		if x {
			return 1, true, false
		}
		return 0, true, false
	default:
		return 0, false, false
	}
}

func textOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		if f, ok, _ := numberOf(v); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprint(v)
	}
}
