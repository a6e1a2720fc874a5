// Package module implements the grids module
package module

import (
	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/platform/config"
	"churnlearn/internal/services/grids/domain"
	"churnlearn/internal/services/grids/repo"
)

// Options holds configuration settings for the grids module
type Options struct {
	Dir string
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	return Options{Dir: cfg.Prefix("CORE_GRIDS_").MayString("DIR", "grids")}
}

// Ports exposed by the grids module
type Ports struct {
	Store domain.StorePort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the grids module
func New(deps modkit.Deps, opts Options) *Module {
	return &Module{deps: deps, ports: Ports{Store: repo.FS{Dir: opts.Dir}}}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "grids" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
