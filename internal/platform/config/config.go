// Package config reads settings from environment variables
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"churnlearn/internal/platform/logger"
)

// Conf is a namespaced view over environment variables, e.g. Prefix("CORE_TRAIN_")
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf with an additional prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) raw(key string) string { return strings.TrimSpace(os.Getenv(c.key(key))) }

// MustString panics if the key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.raw(key); v != "" {
		return v
	}
	return def
}

// may parses the value with parse; a missing value is def and an invalid
// one is logged and also def
func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).
			Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayInt returns the int value or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, "int", strconv.Atoi) }

// MayFloat64 returns the float value or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, "float64", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the bool value or def
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, "bool", strconv.ParseBool) }

// MayDuration returns the duration value (250ms, 2s, 1h) or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayCSV splits a comma-separated value, dropping blanks; def if nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.raw(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the entry of allowed matching the value case-insensitively,
// def when unset, and panics on anything else
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
