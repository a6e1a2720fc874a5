package httpkit

import (
	"net/http"
	"strings"

	perrs "churnlearn/internal/platform/errors"
	pnet "churnlearn/internal/platform/net"
)

// Client returns the authenticated API client from the request context
func Client(r *http.Request) (string, error) {
	id := pnet.Client(r.Context())
	if id == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return id, nil
}

// ClientOr returns the authenticated API client or def on open routes
func ClientOr(r *http.Request, def string) string {
	if id, err := Client(r); err == nil {
		return id
	}
	return def
}

// Bearer returns the raw bearer token from the Authorization header
// The scheme is case-insensitive
func Bearer(r *http.Request) (string, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer"
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	raw := strings.TrimSpace(authz[len(prefix):])
	if raw == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return raw, nil
}
