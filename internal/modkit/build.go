package modkit

import (
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/platform/net/middleware"
	str "churnlearn/internal/platform/strings"
)

// Option configures a module at construction
type Option func(*Built)

// Built is what a module constructor reads back from its options
type Built struct {
	Name   string
	Prefix string
	// Mw runs, in order, only on this module's routes
	Mw        []middleware.Middleware
	Ports     any
	SwaggerOn bool
}

// Build applies opts in order; later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Mount routes register under the module prefix behind its middleware
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	r.Route(str.MustPrefix(b.Prefix), func(rr httpkit.Router) {
		rr.Use(b.Mw...)
		register(rr)
	})
}

// WithName names the module in logs
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts the module under prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends module scoped middleware
func WithMiddlewares(mw ...middleware.Middleware) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands the module the ports of a module it depends on; the
// receiving module asserts the concrete type
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// WithSwagger adds the module's routes to the served OpenAPI document
func WithSwagger(enabled bool) Option { return func(b *Built) { b.SwaggerOn = enabled } }
