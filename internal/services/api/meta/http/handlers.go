// Package http serves the meta endpoints: liveness, readiness and build info
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"churnlearn/internal/core/version"
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/modkit/swaggerkit"

	"golang.org/x/sync/errgroup"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// PingFunc adapts a plain function to Pinger
type PingFunc func(stdctx.Context) error

// Ping implements Pinger
func (f PingFunc) Ping(ctx stdctx.Context) error { return f(ctx) }

// Deps are the handler dependencies; a nil backend is reported as skipped
// PG and CH are optional stores, Models is the registry scoring reads from
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	Models      Pinger
}

// readyTimeout bounds all dependency pings of one readiness call
const readyTimeout = 2 * time.Second

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// Document adds the meta endpoints to the served swagger spec
func Document() {
	for path, summary := range map[string]string{
		"/meta/health":  "Liveness probe",
		"/meta/ready":   "Readiness probe with dependency checks",
		"/meta/version": "Build and version info",
		"/meta/service": "Service info and uptime",
	} {
		swaggerkit.Register(swaggerkit.AddPath(path, "get", "Meta", summary))
	}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"churnlearn-api"`
	Started string `json:"started"  example:"2026-03-02T08:00:00Z"`
	Now     string `json:"now"      example:"2026-03-02T08:05:00Z"`
}

// ReadyCheck is the outcome of one dependency ping
type ReadyCheck struct {
	Name   string `json:"name"   example:"models"`
	Status string `json:"status" example:"ok"` // ok fail skipped unknown
	Error  string `json:"error,omitempty" example:"open /var/lib/churn/models: permission denied"`
}

// ReadyResponse summarizes readiness
// A failing optional store degrades the service; a failing model registry fails it
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-03-02T08:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string `json:"name"    example:"churnlearn-api"`
	Started string `json:"started" example:"2026-03-02T08:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// @Summary Liveness probe
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// @Summary Readiness probe with dependency checks
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	parent := stdctx.Background()
	if r != nil {
		parent = r.Context()
	}
	ctx, cancel := stdctx.WithTimeout(parent, readyTimeout)
	defer cancel()

	deps := []struct {
		name string
		dep  any
	}{{"models", h.deps.Models}, {"pg", h.deps.PG}, {"ch", h.deps.CH}}

	checks := make([]ReadyCheck, len(deps))
	var g errgroup.Group
	for i, d := range deps {
		g.Go(func() error {
			checks[i] = ping(ctx, d.name, d.dep)
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	for i, c := range checks {
		switch {
		case c.Status != "fail":
		case i == 0:
			status = "fail"
		case status == "ok":
			status = "degraded"
		}
	}

	return ReadyResponse{
		Status: status,
		Checks: checks,
		Now:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func ping(ctx stdctx.Context, name string, dep any) ReadyCheck {
	if dep == nil {
		return ReadyCheck{Name: name, Status: "skipped"}
	}
	p, ok := dep.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: "unknown"}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: "ok"}
}

// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.deps.StartedAt) / time.Second),
	}, nil
}
