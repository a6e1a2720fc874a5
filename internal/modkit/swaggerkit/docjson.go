package swaggerkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"churnlearn/internal/core/version"
	"churnlearn/internal/platform/config"
	perr "churnlearn/internal/platform/errors"
)

// SpecMutator lets modules tweak the parsed swagger spec before it is served
type SpecMutator func(map[string]any)

// mutators is the in process registry for spec mutators
var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// docReader is a seam so tests can inject invalid JSON
var docReader = func() string {
	return `{"openapi":"3.0.3","info":{"title":"churnlearn API","version":"` + version.Info().Version + `",` +
		`"description":"Churn model metadata and batch scoring"},"paths":{}}`
}

// Register adds a spec mutator for swagger JSON
// modules call this when they mount their routes
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	mutators = append(mutators, m)
	mu.Unlock()
}

// AddPath is a mutator that documents one operation
// Fields already set on the operation by other mutators are kept
func AddPath(path, method, tag, summary string) SpecMutator {
	return func(spec map[string]any) {
		op := operation(spec, path, method)
		op["tags"] = []any{tag}
		op["summary"] = summary
		responses := child(op, "responses")
		if _, ok := responses["200"]; !ok {
			responses["200"] = map[string]any{"description": "OK"}
		}
	}
}

// MarkSecure requires the bearerAuth scheme on one operation
func MarkSecure(path, method string) SpecMutator {
	return func(spec map[string]any) {
		child(child(spec, "components"), "securitySchemes")["bearerAuth"] = map[string]any{"type": "http", "scheme": "bearer"}
		op := operation(spec, path, method)
		op["security"] = []any{map[string]any{"bearerAuth": []any{}}}
		child(op, "responses")["401"] = errorResponse("Unauthorized", nil)
	}
}

// child returns m[key] as a map, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

func operation(spec map[string]any, path, method string) map[string]any {
	return child(child(child(spec, "paths"), path), strings.ToLower(method))
}

// serveDocJSON serves swagger JSON after every registered mutator ran
func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}

		ensureServers(spec, "/api/v1")
		if v := config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", ""); v != "" {
			if info, ok := spec["info"].(map[string]any); ok {
				info["title"] = fmt.Sprint(info["title"]) + " " + v
			}
		}
		child(child(spec, "components"), "schemas")["ErrorResponse"] = errorSchema

		mu.Lock()
		ms := append([]SpecMutator(nil), mutators...)
		mu.Unlock()
		for _, m := range ms {
			m(spec)
		}

		forEachOperation(spec, func(op map[string]any) {
			responses := child(op, "responses")
			for code, resp := range defaultResponses {
				if _, ok := responses[code]; !ok {
					responses[code] = resp
				}
			}
		})

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// ensureServers lifts the document to OAS 3.0.3, which the swagger UI renders,
// and adds a servers entry when there is none
func ensureServers(spec map[string]any, url string) {
	delete(spec, "swagger")
	spec["openapi"] = "3.0.3"
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

func forEachOperation(spec map[string]any, fn func(op map[string]any)) {
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		node, _ := p.(map[string]any)
		for _, o := range node {
			if op, ok := o.(map[string]any); ok {
				fn(op)
			}
		}
	}
}

// errorSchema mirrors the envelope handlers write on failure
var errorSchema = map[string]any{
	"type":        "object",
	"description": "Standard error response",
	"properties": map[string]any{
		"status_code": map[string]any{"type": "integer", "format": "int32"},
		"status":      map[string]any{"type": "string"},
		"code":        map[string]any{"type": "integer", "format": "int32"},
		"error":       map[string]any{"type": "string"},
		"field":       map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	},
	"required": []any{"status_code", "status"},
}

func errorResponse(description string, example map[string]any) map[string]any {
	media := map[string]any{"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"}}
	if example != nil {
		media["example"] = example
	}
	return map[string]any{
		"description": description,
		"content":     map[string]any{"application/json": media},
	}
}

var defaultResponses = map[string]any{
	"400": errorResponse("Bad Request", map[string]any{
		"status_code": http.StatusBadRequest,
		"status":      "Bad Request",
		"code":        perr.ErrorCodeValidation,
		"error":       "rows must contain at least 1 item",
		"field":       "rows",
	}),
	"500": errorResponse("Internal Server Error", map[string]any{
		"status_code": http.StatusInternalServerError,
		"status":      "Internal Server Error",
		"code":        perr.ErrorCodePanic,
		"error":       "panic recovered",
	}),
}
