package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"churnlearn/internal/platform/net/middleware"
)

func applyStack(h http.Handler, stack []middleware.Middleware) http.Handler {
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}
	return h
}

func TestCommonStack_ReachesHandlerWithRequestID(t *testing.T) {
	var reqID string
	root := applyStack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}), CommonStack(StackOptions{}))

	req := httptest.NewRequest(http.MethodGet, "/models/", nil)
	req.Header.Set("X-Request-ID", "rid-7")
	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status %d", rr.Code)
	}
	if reqID != "rid-7" {
		t.Fatalf("request id %q", reqID)
	}
}

func TestCommonStack_RejectsNonJSONBody(t *testing.T) {
	root := applyStack(http.NotFoundHandler(), CommonStack(StackOptions{}))

	req := httptest.NewRequest(http.MethodPost, "/score", strings.NewReader("customer_id,plan\n"))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestCommonStack_CORSOnlyWhenConfigured(t *testing.T) {
	preflight := func(stack []middleware.Middleware) string {
		req := httptest.NewRequest(http.MethodOptions, "/score", nil)
		req.Header.Set("Origin", "https://ops.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		applyStack(http.NotFoundHandler(), stack).ServeHTTP(rr, req)
		return rr.Header().Get("Access-Control-Allow-Origin")
	}

	if got := preflight(CommonStack(StackOptions{})); got != "" {
		t.Fatalf("CORS without origins: %q", got)
	}
	if got := preflight(CommonStack(StackOptions{CORSOrigins: []string{"https://ops.example"}})); got != "https://ops.example" {
		t.Fatalf("CORS with origins: %q", got)
	}
}

func TestCommonStack_Observes(t *testing.T) {
	var records []middleware.Record
	stack := CommonStack(StackOptions{
		AccessLog: middleware.AccessLogOptions{Observe: func(r middleware.Record) { records = append(records, r) }},
	})
	root := applyStack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}), stack)

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if len(records) != 1 || records[0].Status != http.StatusAccepted {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestCommonStack_PanicIsJSON500(t *testing.T) {
	root := applyStack(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), CommonStack(StackOptions{}))

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type %q", ct)
	}
}
