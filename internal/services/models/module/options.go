package module

import (
	"time"

	"churnlearn/internal/platform/config"
)

// Backends a model store can use
const (
	BackendPG = "pg"
	BackendFS = "fs"
)

// Options holds configuration settings for the models module
type Options struct {
	Backend string
	Dir     string
	Migrate bool

	RetryAttempts int
	RetryBackoff  time.Duration
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	mc := cfg.Prefix("CORE_MODELS_")
	return Options{
		Backend: mc.MayEnum("BACKEND", BackendFS, BackendPG, BackendFS),
		Dir:     mc.MayString("DIR", "models"),
		Migrate: mc.MayBool("MIGRATE", true),

		RetryAttempts: mc.MayInt("RETRY_ATTEMPTS", 3),
		RetryBackoff:  mc.MayDuration("RETRY_BACKOFF", 500*time.Millisecond),
	}
}
