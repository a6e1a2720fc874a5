// Package module wires the meta endpoints into the API
package module

import (
	"time"

	modkit "churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"

	metahttp "churnlearn/internal/services/api/meta/http"
)

// Ports are the optional probes the meta module reports on
type Ports struct {
	Models metahttp.Pinger
}

// Module implements the modkit.Module interface
type Module struct {
	b    modkit.Built
	deps metahttp.Deps
}

// New constructs the meta module; WithPorts(Ports) adds the model registry
// to the readiness checks
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	probes, _ := b.Ports.(Ports)
	d := metahttp.Deps{
		ServiceName: "churnlearn-api",
		StartedAt:   time.Now(),
		Models:      probes.Models,
	}
	// typed nils would read as configured backends
	if deps.PG != nil {
		d.PG = deps.PG
	}
	if deps.CH != nil {
		d.CH = deps.CH
	}
	return &Module{b: b, deps: d}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.b.SwaggerOn {
		metahttp.Document()
	}
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.b.Name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
