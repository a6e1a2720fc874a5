// Package module implements the training module
package module

import (
	"context"

	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/services/training/domain"
	"churnlearn/internal/services/training/repo"
	"churnlearn/internal/services/training/service"

	"github.com/prometheus/client_golang/prometheus"
)

// Ports exposed by the training module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the training module; reg may be nil to skip metrics
func New(deps modkit.Deps, overrides Options, reg prometheus.Registerer, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("training"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("training module: expected WithPorts(training/domain.Ports)")
	}
	if ports.Snapshots == nil || ports.Grids == nil || ports.Models == nil {
		panic("training module: Ports missing Snapshots, Grids or Models")
	}

	cfg := FromConfig(deps.Cfg)
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.Ledger {
		cfg.Ledger, cfg.LedgerTable = true, overrides.LedgerTable
	}

	var m *service.Metrics
	if reg != nil {
		m = service.NewMetrics(reg)
	}
	var runner domain.RunnerPort = service.New(ports.Snapshots, ports.Grids, ports.Models, service.Config{Workers: cfg.Workers}, m)
	if cfg.Ledger {
		l, err := repo.NewLedger(deps.CH, cfg.LedgerTable)
		if err != nil {
			deps.Log.Warn().Err(err).Msg("run ledger disabled")
		} else {
			runner = ledgered{RunnerPort: runner, ledger: l, log: deps.Log}
		}
	}
	return &Module{deps: deps, ports: Ports{Runner: runner}}
}

// ledgered records successful runs; the model is already saved, so a ledger
// failure is only logged
type ledgered struct {
	domain.RunnerPort
	ledger *repo.Ledger
	log    logger.Logger
}

func (l ledgered) Run(ctx context.Context, req domain.RunRequest) (domain.Result, error) {
	res, err := l.RunnerPort.Run(ctx, req)
	if err != nil {
		return res, err
	}
	if err := l.ledger.Record(ctx, res); err != nil {
		l.log.Warn().Err(err).Str("run_id", res.RunID).Msg("run ledger write failed")
	}
	return res, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "training" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(_ httpkit.Router) {}
