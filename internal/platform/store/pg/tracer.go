package pg

import (
	"context"
	"strings"
	"time"

	"churnlearn/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one finished statement
type QueryEvent struct {
	SQL     string
	Args    any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer receives an event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// maxSQLLen bounds the logged statement; snapshot queries can be long
const maxSQLLen = 512

// TracerFunc adapts a function to QueryTracer
type TracerFunc func(ctx context.Context, ev QueryEvent)

// OnQuery calls f
func (f TracerFunc) OnQuery(ctx context.Context, ev QueryEvent) { f(ctx, ev) }

// Multi fans an event out to every tracer; none gives nil so callers skip
// timing entirely
func Multi(ts ...QueryTracer) QueryTracer {
	switch len(ts) {
	case 0:
		return nil
	case 1:
		return ts[0]
	}
	return TracerFunc(func(ctx context.Context, ev QueryEvent) {
		for _, t := range ts {
			t.OnQuery(ctx, ev)
		}
	})
}

// Tracer logs every statement at info, slow or failed ones at warn. The
// tracer logger runs at debug so LogSQL works whatever the root level is
func Tracer(root logger.Logger) QueryTracer {
	log := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return TracerFunc(func(_ context.Context, ev QueryEvent) {
		lvl := zerolog.InfoLevel
		if ev.Slow || ev.Err != nil {
			lvl = zerolog.WarnLevel
		}
		log.WithLevel(lvl).
			Float64("elapsed_ms", float64(ev.Elapsed.Microseconds())/1000).
			Bool("slow", ev.Slow).
			Str("sql", compact(ev.SQL)).
			Interface("args", ev.Args).
			Err(ev.Err).
			Msg("pg query")
	})
}

func compact(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxSQLLen {
		return s
	}
	return s[:maxSQLLen] + "..."
}
