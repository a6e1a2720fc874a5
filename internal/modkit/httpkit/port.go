package httpkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perrs "churnlearn/internal/platform/errors"
)

// TokenTable implements middleware.AuthPort over a fixed set of API clients,
// each holding one bearer token
type TokenTable struct {
	clients []string
	tokens  [][]byte
}

// ParseTokens builds a table from "client:token" entries
func ParseTokens(entries []string) (*TokenTable, error) {
	t := &TokenTable{}
	seen := map[string]bool{}
	for _, e := range entries {
		client, token, ok := strings.Cut(strings.TrimSpace(e), ":")
		if !ok || client == "" || token == "" {
			return nil, perrs.Configurationf("api token entry %q is not client:token", e)
		}
		if seen[client] {
			return nil, perrs.Configurationf("api client %q listed twice", client)
		}
		seen[client] = true
		t.clients = append(t.clients, client)
		t.tokens = append(t.tokens, []byte(token))
	}
	return t, nil
}

// Len returns the number of clients
func (t *TokenTable) Len() int { return len(t.clients) }

// Parse implements middleware.AuthPort. Every entry is compared so timing
// does not reveal which client matched
func (t *TokenTable) Parse(r *http.Request) (string, error) {
	raw, err := Bearer(r)
	if err != nil {
		return "", err
	}
	match := -1
	for i, tok := range t.tokens {
		if subtle.ConstantTimeCompare(tok, []byte(raw)) == 1 {
			match = i
		}
	}
	if match < 0 {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	return t.clients[match], nil
}
