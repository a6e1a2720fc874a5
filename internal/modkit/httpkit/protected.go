package httpkit

import (
	"path"

	"churnlearn/internal/modkit/swaggerkit"
	"churnlearn/internal/platform/net/middleware"

	phttp "churnlearn/internal/platform/net/http"
)

// Protected groups routes under bearer auth and records secured endpoints for swagger
// base is the documented path the group is mounted under, e.g. "/models"
func Protected(r Router, base string, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(gr Router) {
		gr.Use(Auth(p))
		fn(&securedRouter{Router: gr, base: base})
	})
}

type securedRouter struct {
	Router
	base string
}

// docPath is the cleaned path swagger documents; chi group roots lose their
// trailing slash
func docPath(base, p string) string { return path.Join("/", base, p) }

func (s *securedRouter) mark(p, method string) {
	swaggerkit.Register(swaggerkit.MarkSecure(docPath(s.base, p), method))
}

func (s *securedRouter) Route(prefix string, fn func(Router)) {
	base := docPath(s.base, prefix)
	s.Router.Route(prefix, func(sub Router) { fn(&securedRouter{Router: sub, base: base}) })
}

func (s *securedRouter) Group(fn func(Router)) {
	s.Router.Group(func(sub Router) { fn(&securedRouter{Router: sub, base: s.base}) })
}

func (s *securedRouter) Get(path string, h phttp.Handler) {
	s.mark(path, "get")
	s.Router.Get(path, h)
}

func (s *securedRouter) Post(path string, h phttp.Handler) {
	s.mark(path, "post")
	s.Router.Post(path, h)
}
