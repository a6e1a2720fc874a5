package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "churnlearn/internal/platform/net/http"
	"churnlearn/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack; the zero value is usable
type StackOptions struct {
	AccessLog middleware.AccessLogOptions
	// CORSOrigins enables cross-origin access for these origins, empty disables CORS
	CORSOrigins []string
	// Timeout cancels the request context, defaults to 30s
	Timeout time.Duration
}

// CommonStack is the middleware every /api/v1 route runs behind
func CommonStack(opt StackOptions) []middleware.Middleware {
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	stack := []middleware.Middleware{
		middleware.RequestID(),
		middleware.RealIP(),
		// outside recovery so panics are logged as 500s
		middleware.AccessLog(opt.AccessLog),
		middleware.RecoverJSON,
		middleware.NoCache(),
	}
	if len(opt.CORSOrigins) > 0 {
		stack = append(stack, middleware.CORS(middleware.CORSOptions{AllowedOrigins: opt.CORSOrigins}))
	}
	stack = append(stack,
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.JSONOnly(),
		middleware.Timeout(opt.Timeout),
	)
	return stack
}

// Auth wires bearer auth to the envelope writer
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.JSON)
}
