package grid

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	perr "churnlearn/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

// maxCandidates bounds a single constructor's output
const maxCandidates = 10000

// Linspace returns num evenly spaced values over [start, stop]
func Linspace(start, stop float64, num int) (Values, error) {
	if err := finite("linear", start, stop); err != nil {
		return nil, err
	}
	if num < 1 || num > maxCandidates {
		return nil, perr.InvalidArgf("grid: linear num must be in [1, %d], got %d", maxCandidates, num)
	}
	if num == 1 {
		return Values{start}, nil
	}
	out := make(Values, num)
	step := (stop - start) / float64(num-1)
	for i := range num {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out, nil
}

// Logspace returns base**x for num evenly spaced x over [start, stop]
func Logspace(start, stop float64, num int, base float64) (Values, error) {
	if err := finite("log", start, stop, base); err != nil {
		return nil, err
	}
	if base <= 0 || base == 1 {
		return nil, perr.InvalidArgf("grid: log base must be positive and not 1, got %v", base)
	}
	exps, err := Linspace(start, stop, num)
	if err != nil {
		return nil, err
	}
	for i, e := range exps {
		exps[i] = math.Pow(base, e.(float64))
	}
	return exps, nil
}

// Range returns start, start+step, ... stopping before stop
// Integral arguments produce ints, anything else produces floats
func Range(start, stop, step float64) (Values, error) {
	if err := finite("range", start, stop, step); err != nil {
		return nil, err
	}
	if step == 0 {
		return nil, perr.InvalidArgf("grid: range step must not be 0")
	}
	n := int(math.Ceil((stop - start) / step))
	if n < 0 {
		n = 0
	}
	if n > maxCandidates {
		return nil, perr.InvalidArgf("grid: range yields %d values, max %d", n, maxCandidates)
	}
	integral := isInt(start) && isInt(stop) && isInt(step)
	out := make(Values, n)
	for i := range n {
		v := start + float64(i)*step
		if integral {
			out[i] = int(v)
		} else {
			out[i] = v
		}
	}
	return out, nil
}

func isInt(f float64) bool { return f == math.Trunc(f) && !math.IsInf(f, 0) }

func finite(kind string, args ...float64) error {
	for _, f := range args {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return perr.InvalidArgf("grid: %s arguments must be finite, got %v", kind, f)
		}
	}
	return nil
}

var callForm = regexp.MustCompile(`^\s*(linspace|logspace|range)\s*\((.*)\)\s*$`)

// ParseString expands the string constructors linspace(a, b, n),
// logspace(a, b, n) and range(a, b[, step]). Any other string is a literal
func ParseString(s string) (Values, error) {
	m := callForm.FindStringSubmatch(s)
	if m == nil {
		return Values{s}, nil
	}
	var args []float64
	for _, part := range strings.Split(m[2], ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, perr.InvalidArgf("grid: %s argument %q is not a number", m[1], strings.TrimSpace(part))
		}
		args = append(args, f)
	}

	switch m[1] {
	case "linspace", "logspace":
		if len(args) != 3 || !isInt(args[2]) {
			return nil, perr.InvalidArgf("grid: %s wants (start, stop, num), got %q", m[1], s)
		}
		if m[1] == "linspace" {
			return Linspace(args[0], args[1], int(args[2]))
		}
		return Logspace(args[0], args[1], int(args[2]), 10)
	default:
		switch len(args) {
		case 2:
			return Range(args[0], args[1], 1)
		case 3:
			return Range(args[0], args[1], args[2])
		}
		return nil, perr.InvalidArgf("grid: range wants (start, stop[, step]), got %q", s)
	}
}

type linearSpec struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Num   int     `yaml:"num"`
}

type logSpec struct {
	Start float64  `yaml:"start"`
	Stop  float64  `yaml:"stop"`
	Num   int      `yaml:"num"`
	Base  *float64 `yaml:"base"`
}

type rangeSpec struct {
	Start float64  `yaml:"start"`
	Stop  float64  `yaml:"stop"`
	Step  *float64 `yaml:"step"`
}

// UnmarshalYAML accepts a scalar, a list of scalars, a one-key mapping
// naming a constructor (linear, log, range) or a constructor string
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		out, err := scalar(node)
		if err != nil {
			return err
		}
		*v = out
		return nil

	case yaml.SequenceNode:
		out := make(Values, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return perr.InvalidArgf("grid: line %d: list items must be scalars", item.Line)
			}
			var x any
			if err := item.Decode(&x); err != nil {
				return err
			}
			out = append(out, x)
		}
		*v = out
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return perr.InvalidArgf("grid: line %d: constructor mapping must have exactly one key", node.Line)
		}
		name, body := node.Content[0].Value, node.Content[1]
		var (
			out Values
			err error
		)
		switch name {
		case "linear":
			var s linearSpec
			if err = body.Decode(&s); err == nil {
				out, err = Linspace(s.Start, s.Stop, s.Num)
			}
		case "log":
			var s logSpec
			if err = body.Decode(&s); err == nil {
				base := 10.0
				if s.Base != nil {
					base = *s.Base
				}
				out, err = Logspace(s.Start, s.Stop, s.Num, base)
			}
		case "range":
			var s rangeSpec
			if err = body.Decode(&s); err == nil {
				step := 1.0
				if s.Step != nil {
					step = *s.Step
				}
				out, err = Range(s.Start, s.Stop, step)
			}
		default:
			return perr.InvalidArgf("grid: line %d: unknown constructor %q (want linear, log or range)", node.Line, name)
		}
		if err != nil {
			return err
		}
		*v = out
		return nil
	}
	return perr.InvalidArgf("grid: line %d: unsupported value", node.Line)
}

func scalar(node *yaml.Node) (Values, error) {
	var x any
	if err := node.Decode(&x); err != nil {
		return nil, err
	}
	if s, ok := x.(string); ok {
		return ParseString(s)
	}
	return Values{x}, nil
}

// Parse decodes a YAML grid document
func Parse(b []byte) (Grid, error) {
	var g Grid
	if err := yaml.Unmarshal(b, &g); err != nil {
		if _, ok := perr.As(err); ok {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "grid: decode yaml")
	}
	if g == nil {
		g = Grid{}
	}
	return g, nil
}
