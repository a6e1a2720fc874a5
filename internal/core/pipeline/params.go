package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	perr "churnlearn/internal/platform/errors"
)

// Param values arrive from YAML grids and JSON requests, so numbers may be
// int, int64, float64 or numeric strings. These helpers coerce them

// Float coerces a parameter value to float64
func Float(name string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, perr.InvalidArgf("param %s: want a number, got %T(%v)", name, v, v)
}

// Int coerces a parameter value to int; floats must be whole
func Int(name string, v any) (int, error) {
	f, err := Float(name, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, perr.InvalidArgf("param %s: want an integer, got %v", name, v)
	}
	return int(f), nil
}

// Bool coerces a parameter value to bool
func Bool(name string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err == nil {
			return b, nil
		}
	}
	return false, perr.InvalidArgf("param %s: want a bool, got %T(%v)", name, v, v)
}

// String coerces a parameter value to string; nil is the empty string
func String(name string, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", perr.InvalidArgf("param %s: want a string, got %T(%v)", name, v, v)
}

// UnknownParam is the error steps return for options they do not have
func UnknownParam(kind, name string) error {
	return perr.InvalidArgf("%s: unknown param %q", kind, name)
}
