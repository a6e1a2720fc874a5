// Package module wires model scoring into the API using modkit
package module

import (
	modkit "churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/services/api/scoring/domain"
	scoringhttp "churnlearn/internal/services/api/scoring/http"
	scoringsvc "churnlearn/internal/services/api/scoring/service"
	modelsmod "churnlearn/internal/services/models/module"

	"github.com/prometheus/client_golang/prometheus"
)

// Ports exposed by the scoring module
type Ports struct {
	Scoring domain.ServicePort
}

// Module implements the modkit.Module interface
type Module struct {
	b        modkit.Built
	register func(httpkit.Router)
	svc      scoringsvc.Service
}

// New constructs the scoring module. It needs WithPorts(models/module.Ports)
// for model storage; reg may be nil to skip metrics
func New(deps modkit.Deps, overrides Options, reg prometheus.Registerer, opts ...modkit.Option) (modkit.Module, error) {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("scoring"), modkit.WithPrefix("/models")}, opts...)...)

	models, ok := b.Ports.(modelsmod.Ports)
	if !ok || models.Store == nil {
		panic("scoring module: expected WithPorts(models/module.Ports)")
	}

	cfg := FromConfig(deps.Cfg)
	if overrides.CacheTTL != 0 {
		cfg.CacheTTL = overrides.CacheTTL
	}
	if overrides.Tokens != nil {
		cfg.Tokens = overrides.Tokens
	}
	if overrides.MaxInFlight != 0 {
		cfg.MaxInFlight = overrides.MaxInFlight
		cfg.Backlog = overrides.Backlog
		cfg.BacklogWait = overrides.BacklogWait
	}
	// the throttle runs before the module's other middleware
	b.Mw = append(cfg.throttle(), b.Mw...)
	tokens, err := cfg.tokenTable()
	if err != nil {
		return nil, err
	}
	var metrics *scoringsvc.Metrics
	if reg != nil {
		metrics = scoringsvc.NewMetrics(reg)
	}
	svc := scoringsvc.New(models.Store, scoringsvc.Config{CacheTTL: cfg.CacheTTL}, metrics)

	m := &Module{b: b, svc: svc}
	m.register = func(r httpkit.Router) {
		if tokens == nil {
			scoringhttp.Register(r, svc)
			return
		}
		deps.Log.Info().Int("clients", tokens.Len()).Msg("scoring routes require a bearer token")
		httpkit.Protected(r, b.Prefix, tokens, func(pr httpkit.Router) {
			scoringhttp.Register(pr, svc)
		})
	}
	return m, nil
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.b.SwaggerOn {
		scoringhttp.Document()
	}
	m.b.Mount(r, m.register)
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Ports returns the module ports
func (m *Module) Ports() any { return Ports{Scoring: m.svc} }
