// Package module implements the models module
package module

import (
	"context"

	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/retry"
	"churnlearn/internal/services/models/domain"
	"churnlearn/internal/services/models/repo"
	"churnlearn/internal/services/models/service"
)

// Ports exposed by the models module
type Ports struct {
	Store domain.StorePort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the models module; the pg backend is migrated when asked
func New(ctx context.Context, deps modkit.Deps, opts Options) (*Module, error) {
	var storage domain.StorageRepo
	switch opts.Backend {
	case BackendPG:
		if deps.PG == nil {
			return nil, perr.Configurationf("model backend pg needs SERVICE_PGSQL_DBURL")
		}
		pg := repo.NewPG(deps.PG)
		if opts.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		storage = pg
	case BackendFS, "":
		storage = repo.FS{Dir: opts.Dir}
	default:
		return nil, perr.Configurationf("unknown model backend %q", opts.Backend)
	}

	policy := retry.Default()
	if opts.RetryAttempts > 0 {
		policy.Attempts = opts.RetryAttempts
	}
	if opts.RetryBackoff > 0 {
		policy.Base = opts.RetryBackoff
	}

	svc, err := service.New(storage, service.WithRetry(policy))
	if err != nil {
		return nil, err
	}
	return &Module{deps: deps, ports: Ports{Store: svc}}, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "models" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
