// Package middleware holds the http.Handler decorators the API stack is built
// from; chi types stay inside this package
package middleware

import (
	"net/http"
	"time"

	pstrings "churnlearn/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is the decorator shape every constructor here returns
type Middleware = func(http.Handler) http.Handler

// RequestID honours an inbound X-Request-ID or mints one
func RequestID() Middleware { return chimw.RequestID }

// RealIP rewrites RemoteAddr from X-Forwarded-For / X-Real-IP
func RealIP() Middleware { return chimw.RealIP }

// Timeout bounds the request context; scoring checks ctx between rows
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// NoCache keeps probability responses out of shared caches
func NoCache() Middleware { return chimw.NoCache }

// StripSlashes routes /score/ the same as /score
func StripSlashes() Middleware { return chimw.StripSlashes }

// Compress negotiates gzip/deflate for large scored batches
func Compress(level int) Middleware {
	c := chimw.NewCompressor(level)
	return c.Handler
}

// JSONOnly rejects request bodies that are not one of ct with 415
// Bodiless requests pass through
func JSONOnly(ct ...string) Middleware {
	if len(ct) == 0 {
		ct = []string{"application/json"}
	}
	return chimw.AllowContentType(ct...)
}

// Throttle caps in-flight requests at limit; up to backlog more wait for
// wait before a 429
func Throttle(limit, backlog int, wait time.Duration) Middleware {
	return chimw.ThrottleBacklog(limit, backlog, wait)
}

// CORSOptions is the part of go-chi/cors the API exposes through config
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS applies go-chi/cors; empty methods and headers get the API's defaults
func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   pstrings.IfEmpty(o.AllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		AllowedHeaders:   pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}
