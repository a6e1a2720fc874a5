package httpkit

import (
	"net/http"

	phttp "churnlearn/internal/platform/net/http"
)

// Get registers a body-less handler whose result is wrapped in the envelope
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.JSONHandlerNoBody(h))
}

// PostJSON mounts a pure JSON handler under POST; the body is bound and
// validated before h runs
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}
