// Package httpkit provides handler and routing helpers over the platform http package
// use these from modules so they do not import internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "churnlearn/internal/platform/net/http"
)

type (
	// Envelope is the transport envelope type
	Envelope = phttp.Envelope

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Router is a re-export of the platform router seam
	Router = phttp.Router
)

// URLParam returns the named path parameter of the matched route
func URLParam(r *http.Request, name string) string { return phttp.URLParam(r, name) }
