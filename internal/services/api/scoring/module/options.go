package module

import (
	"time"

	"churnlearn/internal/modkit/httpkit"
	"churnlearn/internal/platform/config"
	"churnlearn/internal/platform/net/middleware"
)

// Options holds configuration settings for the scoring module
type Options struct {
	CacheTTL time.Duration
	// Tokens are "client:token" pairs; empty leaves the routes open
	Tokens []string
	// MaxInFlight caps concurrent scoring requests, 0 leaves them uncapped;
	// Backlog more may wait up to BacklogWait before a 429
	MaxInFlight int
	Backlog     int
	BacklogWait time.Duration
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_API_")
	return Options{
		CacheTTL: c.MayDuration("MODEL_CACHE_TTL", time.Minute),
		Tokens:   c.MayCSV("TOKENS", nil),

		MaxInFlight: c.MayInt("MAX_INFLIGHT", 0),
		Backlog:     c.MayInt("BACKLOG", 64),
		BacklogWait: c.MayDuration("BACKLOG_WAIT", 5*time.Second),
	}
}

func (o Options) throttle() []middleware.Middleware {
	if o.MaxInFlight <= 0 {
		return nil
	}
	return []middleware.Middleware{middleware.Throttle(o.MaxInFlight, max(o.Backlog, 0), o.BacklogWait)}
}

func (o Options) tokenTable() (*httpkit.TokenTable, error) {
	if len(o.Tokens) == 0 {
		return nil, nil
	}
	return httpkit.ParseTokens(o.Tokens)
}
