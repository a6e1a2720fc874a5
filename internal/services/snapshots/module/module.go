// Package module implements the snapshots module
package module

import (
	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/retry"
	"churnlearn/internal/services/snapshots/domain"
	"churnlearn/internal/services/snapshots/repo"
	"churnlearn/internal/services/snapshots/service"
)

// Ports exposed by the snapshots module
type Ports struct {
	Reader domain.ReaderPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the snapshots module over the configured source
// A source whose backend is not configured is a configuration error
func New(deps modkit.Deps, opts Options) (*Module, error) {
	src, err := source(deps, opts)
	if err != nil {
		return nil, err
	}

	policy := retry.Default()
	if opts.RetryAttempts > 0 {
		policy.Attempts = opts.RetryAttempts
	}
	if opts.RetryBackoff > 0 {
		policy.Base = opts.RetryBackoff
	}

	reader := service.New(src, service.Config{
		Columns: domain.Columns{
			Key:      opts.Key,
			Label:    opts.Label,
			Drop:     opts.Drop,
			Eligible: opts.Eligible,
		},
		Retry: policy,
		QPS:   opts.QPS,
		Burst: opts.Burst,
	})

	return &Module{deps: deps, opts: opts, ports: Ports{Reader: reader}}, nil
}

func source(deps modkit.Deps, opts Options) (domain.SourceRepo, error) {
	switch opts.Source {
	case SourcePG:
		if deps.PG == nil {
			return nil, perr.Configurationf("snapshot source pg needs SERVICE_PGSQL_DBURL")
		}
		return repo.NewPG(deps.PG, opts.Query), nil
	case SourceCH:
		if deps.CH == nil {
			return nil, perr.Configurationf("snapshot source ch needs SERVICE_CLICKHOUSE_DBURL")
		}
		return repo.NewCH(deps.CH, opts.Query), nil
	case SourceCSV, "":
		return &repo.CSV{Root: opts.Dir, InputDir: opts.InputDir, ResponseDir: opts.ResponseDir, Key: opts.Key}, nil
	default:
		return nil, perr.Configurationf("unknown snapshot source %q", opts.Source)
	}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "snapshots" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
