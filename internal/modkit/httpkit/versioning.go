package httpkit

import (
	"path"
	"strings"

	"churnlearn/internal/platform/net/middleware"
)

// APIVersion is the version segment every module route lives under
const APIVersion = "v1"

// MountAPI scopes mount under /api/<version> behind mw; modules then mount
// their own prefixes inside
func MountAPI(r Router, version string, mw []middleware.Middleware, mount func(Router)) {
	r.Route(path.Join("/api", strings.Trim(version, "/")), func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		mount(api)
	})
}
