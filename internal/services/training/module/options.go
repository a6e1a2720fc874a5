package module

import "churnlearn/internal/platform/config"

// Options holds configuration settings for the training module
type Options struct {
	Workers int
	// Ledger records every run's fold scores in ClickHouse LedgerTable
	Ledger      bool
	LedgerTable string
}

// FromConfig reads CORE_TRAIN_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_TRAIN_")
	return Options{
		Workers:     c.MayInt("WORKERS", 0),
		Ledger:      c.MayBool("LEDGER", false),
		LedgerTable: c.MayString("LEDGER_TABLE", ""),
	}
}
