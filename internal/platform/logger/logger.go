// Package logger provides a zerolog wrapper with opinionated defaults and
// request- and run-scoped logging support
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"churnlearn/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv builds Options using the logging-free raw config view (no cycles)
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(rc.Get("LEVEL", "info")),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger] // internal storage of the root logger
	inited atomic.Bool
)

// Logger is the project-wide logging type - today it's just a zerolog.Logger, but it can be swapped later
type Logger = zerolog.Logger

// Get returns the process-wide root logger as a pointer
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger from opt; only the first call has an effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log := build(opt)
		root.Store(&log)
		inited.Store(true)
	})
}

func build(opt Options) zerolog.Logger {
	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	fields := map[string]any{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fields["go_version"] = bi.GoVersion
	}
	for k, v := range map[string]string{"service": opt.Service, "component": opt.Component} {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range opt.StaticFields {
		fields[k] = v
	}

	zctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Fields(fields)
	if opt.WithCaller {
		zctx = zctx.Caller()
	}
	log := zctx.Logger()
	if opt.SampleEvery > 1 {
		log = log.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return log
}

// parseLevel maps unknown or empty names to info
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type ctxKey struct{ name string }

var (
	keyRequestID = ctxKey{"req_id"}
	keyRunID     = ctxKey{"run_id"}
	keyModelKey  = ctxKey{"model_key"}
	keyClient    = ctxKey{"client"}
)

// WithRequest annotates ctx with the request id of an HTTP call
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID != "" {
		ctx = context.WithValue(ctx, keyRequestID, reqID)
	}
	return ctx
}

// WithRun annotates ctx with the fields of a training run so every line
// logged under it can be correlated with the persisted model
func WithRun(ctx context.Context, runID, modelKey string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, keyRunID, runID)
	}
	if modelKey != "" {
		ctx = context.WithValue(ctx, keyModelKey, modelKey)
	}
	return ctx
}

// WithClient annotates ctx with the API client a request authenticated as
func WithClient(ctx context.Context, client string) context.Context {
	if client != "" {
		ctx = context.WithValue(ctx, keyClient, client)
	}
	return ctx
}

var ctxFields = []struct {
	key   ctxKey
	field string
}{
	{keyRequestID, "request_id"},
	{keyRunID, "run_id"},
	{keyModelKey, "model_key"},
	{keyClient, "client"},
}

// C returns a child logger enriched from the ctx fields above
func C(ctx context.Context) *Logger {
	builder := Get().With()
	for _, f := range ctxFields {
		if s, ok := ctx.Value(f.key).(string); ok && s != "" {
			builder = builder.Str(f.field, s)
		}
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
