package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	perr "churnlearn/internal/platform/errors"
	pnet "churnlearn/internal/platform/net"
	"churnlearn/internal/platform/net/middleware"
)

type stubPort struct {
	client string
	err    error
}

func (s stubPort) Parse(*http.Request) (string, error) { return s.client, s.err }

func statusOnly(w http.ResponseWriter, status int, _ any) { w.WriteHeader(status) }

func serveAuth(p middleware.AuthPort) (*httptest.ResponseRecorder, string, bool) {
	var (
		seen   string
		called bool
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = pnet.Client(r.Context())
	})
	rec := httptest.NewRecorder()
	middleware.Auth(p, statusOnly)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", nil))
	return rec, seen, called
}

func TestAuth_NilPortPassesThrough(t *testing.T) {
	rec, client, called := serveAuth(nil)
	if !called || rec.Code != http.StatusOK || client != "" {
		t.Fatalf("called=%v code=%d client=%q", called, rec.Code, client)
	}
}

func TestAuth_RejectsWithMappedStatus(t *testing.T) {
	rec, _, called := serveAuth(stubPort{err: perr.Unauthorizedf("invalid bearer token")})
	if called {
		t.Fatalf("next must not run on auth failure")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestAuth_StoresClient(t *testing.T) {
	rec, client, called := serveAuth(stubPort{client: "crm"})
	if !called || rec.Code != http.StatusOK || client != "crm" {
		t.Fatalf("called=%v code=%d client=%q", called, rec.Code, client)
	}
}
