// Package modkit builds service modules: the shared dependencies they are
// constructed with and the options that name, mount and connect them
package modkit

import (
	"churnlearn/internal/modkit/module"
	"churnlearn/internal/modkit/repokit"
	"churnlearn/internal/platform/config"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/store"
)

// Module is re-exported so constructors can return it without importing module
type Module = module.Module

// Deps is what every module constructor receives. PG and CH stay nil unless
// the process opened that backend, and a module that needs one must say so
// in its own error
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
