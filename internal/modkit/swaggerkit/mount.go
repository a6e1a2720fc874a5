// Package swaggerkit builds the OpenAPI document from what modules register
// and serves it with the Swagger UI
package swaggerkit

import (
	"net/http"

	phttp "churnlearn/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// DocsPath is where the UI lives; the document is DocsPath/doc.json
const DocsPath = "/api/docs"

// Mount serves the UI and the document when enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	doc := DocsPath + "/doc.json"
	r.Get(DocsPath, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, DocsPath+"/", http.StatusPermanentRedirect)
	})
	r.Get(doc, serveDocJSON())
	r.Handle(DocsPath+"/*", httpSwagger.Handler(
		httpSwagger.URL(doc),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))
}
