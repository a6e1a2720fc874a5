package store

import (
	"time"

	"churnlearn/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs:
	ConnectRetries int           // default 20 (about 35s with capped exponential backoff)
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	LogSQL  bool

	// ClientName and ClientTag are reported to the server in client info
	// so warehouse query logs can be attributed to a binary and role
	ClientName string
	ClientTag  string
}

// FromConf reads backend settings from SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_*
// A backend is enabled when its DBURL is set
func FromConf(root config.Conf, appName, role string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	pgURL := pgCfg.MayString("DBURL", "")
	chURL := chCfg.MayString("DBURL", "")

	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			LogSQL:     chCfg.MayBool("LOG_SQL", false),
			ClientName: appName,
			ClientTag:  role,
		},
	}
}
