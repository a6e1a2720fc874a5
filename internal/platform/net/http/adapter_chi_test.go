package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func header(name string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			w.Header().Set(name, "1")
			next.ServeHTTP(w, r)
		})
	}
}

func TestAdaptChi_ScopesMiddleware(t *testing.T) {
	m := chi.NewRouter()
	r := AdaptChi(m)
	r.Use(header("X-Root"))
	r.Get("/health", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })

	r.Route("/api/v1", func(api Router) {
		api.Use(header("X-Api"))
		if api.Mux() == nil {
			t.Fatalf("route Mux is nil")
		}
		api.Group(func(g Router) {
			g.Use(header("X-Group"))
			g.Post("/models/{key}/score", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
				_, _ = w.Write([]byte(URLParam(req, "key")))
			})
		})
		api.Get("/models", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { _, _ = w.Write([]byte("list")) })
	})
	r.Handle("/raw", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusTeapot)
	}))

	cases := []struct {
		method, path string
		code         int
		body         string
		headers      []string
		absent       []string
	}{
		{stdhttp.MethodGet, "/health", stdhttp.StatusNoContent, "", []string{"X-Root"}, []string{"X-Api"}},
		{stdhttp.MethodPost, "/api/v1/models/churn/score", stdhttp.StatusOK, "churn", []string{"X-Root", "X-Api", "X-Group"}, nil},
		{stdhttp.MethodGet, "/api/v1/models", stdhttp.StatusOK, "list", []string{"X-Api"}, []string{"X-Group"}},
		{stdhttp.MethodGet, "/raw", stdhttp.StatusTeapot, "", nil, nil},
		{stdhttp.MethodGet, "/api/v1/models/churn/score", stdhttp.StatusMethodNotAllowed, "", nil, nil},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, nil))
		if rec.Code != c.code {
			t.Fatalf("%s %s: code %d, want %d", c.method, c.path, rec.Code, c.code)
		}
		if c.body != "" && rec.Body.String() != c.body {
			t.Fatalf("%s %s: body %q", c.method, c.path, rec.Body.String())
		}
		for _, h := range c.headers {
			if rec.Header().Get(h) != "1" {
				t.Fatalf("%s %s: missing %s", c.method, c.path, h)
			}
		}
		for _, h := range c.absent {
			if rec.Header().Get(h) != "" {
				t.Fatalf("%s %s: unexpected %s", c.method, c.path, h)
			}
		}
	}
}
