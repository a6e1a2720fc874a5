package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "churnlearn/internal/platform/errors"
	pnet "churnlearn/internal/platform/net"
	phttp "churnlearn/internal/platform/net/http"
)

func serve(t *testing.T, h http.Handler, req *http.Request) (int, phttp.Envelope) {
	t.Helper()
	req = req.WithContext(pnet.WithRequestID(req.Context(), "rid-7"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type %q", ct)
	}
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, env
}

func TestHandle_SuccessAndError(t *testing.T) {
	ok := phttp.Handle(func(*http.Request) phttp.Response { return phttp.OK([]string{"churn"}) })
	code, env := serve(t, ok, httptest.NewRequest(http.MethodGet, "/", nil))
	if code != http.StatusOK || env.StatusCode != http.StatusOK || env.RequestID != "rid-7" || env.Error != "" {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	if got := env.Data.([]any); len(got) != 1 || got[0] != "churn" {
		t.Fatalf("data = %#v", env.Data)
	}

	bad := phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.Error(perr.SchemaDriftf("column tenure missing"))
	})
	code, env = serve(t, bad, httptest.NewRequest(http.MethodGet, "/", nil))
	if code != http.StatusConflict || env.Code != perr.ErrorCodeSchemaDrift || env.Error != "column tenure missing" {
		t.Fatalf("code=%d env=%+v", code, env)
	}
	if env.Data != nil || env.RequestID != "rid-7" {
		t.Fatalf("env = %+v", env)
	}
}

func TestHandle_ZeroStatusIsOK(t *testing.T) {
	h := phttp.Handle(func(*http.Request) phttp.Response { return phttp.Response{Body: "x"} })
	if code, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil)); code != http.StatusOK || env.Data != "x" {
		t.Fatalf("code=%d env=%+v", code, env)
	}
}

type thresholdIn struct {
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

func TestJSONHandler(t *testing.T) {
	h := phttp.JSONHandler(func(_ *http.Request, in thresholdIn) (any, error) {
		if in.Threshold == 1 {
			return phttp.Response{Status: http.StatusAccepted, Body: "queued"}, nil
		}
		return map[string]float64{"threshold": in.Threshold}, nil
	})

	cases := []struct {
		body string
		code int
	}{
		{`{"threshold":0.4}`, http.StatusOK},
		{`{"threshold":1}`, http.StatusAccepted},
		{`{"threshold":3}`, http.StatusBadRequest},
		{`{"threshold":0.4,"extra":1}`, http.StatusBadRequest},
		{``, http.StatusBadRequest},
	}
	for _, c := range cases {
		code, _ := serve(t, http.HandlerFunc(h), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body)))
		if code != c.code {
			t.Fatalf("body %q: code %d, want %d", c.body, code, c.code)
		}
	}
}

func TestJSONHandlerNoBody_Error(t *testing.T) {
	h := phttp.JSONHandlerNoBody(func(*http.Request) (any, error) { return nil, perr.NotFittedf("model churn not fitted") })
	code, env := serve(t, http.HandlerFunc(h), httptest.NewRequest(http.MethodGet, "/", nil))
	if code != http.StatusInternalServerError || env.Code != perr.ErrorCodeNotFitted {
		t.Fatalf("code=%d env=%+v", code, env)
	}
}
