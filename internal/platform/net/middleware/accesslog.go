// Package middleware holds adapters and in house middlewares
package middleware

import (
	"net/http"
	"time"

	"churnlearn/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Record describes one finished request
type Record struct {
	Method  string
	Route   string // chi pattern such as /api/v1/models/{key}/score; empty when nothing matched
	Status  int
	Elapsed time.Duration
	Bytes   int
}

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow marks requests taking >= Slow as warn level, 0 disables slow marking
	Slow time.Duration
	// Observe receives every finished request, e.g. for a latency histogram
	Observe func(Record)
}

// captureWriter wraps the original ResponseWriter and records status & bytes
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	if n > 0 {
		cw.bytes += n
	}
	return n, err
}

// AccessLog copies the chi request id onto the logger context so handler
// logs carry it, then logs method, route, status, elapsed and bytes
// Mount it after RequestID
func AccessLog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			ctx := logger.WithRequest(r.Context(), chimw.GetReqID(r.Context()))
			start := time.Now()

			next.ServeHTTP(cw, r.WithContext(ctx))

			rec := Record{
				Method:  r.Method,
				Route:   routePattern(r),
				Status:  cw.status,
				Elapsed: time.Since(start),
				Bytes:   cw.bytes,
			}
			if opt.Observe != nil {
				opt.Observe(rec)
			}

			log := logger.C(ctx)
			evt := log.Info()
			if opt.Slow > 0 && rec.Elapsed >= opt.Slow {
				evt = log.Warn()
			}
			evt.Int("status", rec.Status).
				Dur("elapsed", rec.Elapsed).
				Str("method", rec.Method).
				Str("path", r.URL.Path).
				Str("route", rec.Route).
				Int("bytes", rec.Bytes).
				Msg("request done")
		})
	}
}

// routePattern reads the matched pattern chi leaves on the shared route
// context once routing finished
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
