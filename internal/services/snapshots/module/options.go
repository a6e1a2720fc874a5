package module

import (
	"time"

	"churnlearn/internal/platform/config"
)

// Sources a snapshot module can read from
const (
	SourcePG  = "pg"
	SourceCH  = "ch"
	SourceCSV = "csv"
)

// Options holds configuration settings for the snapshots module
type Options struct {
	Source string
	Query  string

	Dir         string
	InputDir    string
	ResponseDir string

	Key      string
	Label    string
	Drop     []string
	Eligible []string

	QPS           float64
	Burst         int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("CORE_SNAPSHOT_")
	return Options{
		Source:        sc.MayEnum("SOURCE", SourceCSV, SourcePG, SourceCH, SourceCSV),
		Query:         sc.MayString("QUERY", ""),
		Dir:           sc.MayString("DIR", "data"),
		InputDir:      sc.MayString("INPUT_DIR", "inputs"),
		ResponseDir:   sc.MayString("RESPONSE_DIR", "responses"),
		Key:           sc.MayString("KEY", "customer_id"),
		Label:         sc.MayString("LABEL", "churned"),
		Drop:          sc.MayCSV("DROP", []string{"snapshot_date"}),
		Eligible:      sc.MayCSV("ELIGIBLE", nil),
		QPS:           sc.MayFloat64("QPS", 0),
		Burst:         sc.MayInt("BURST", 1),
		RetryAttempts: sc.MayInt("RETRY_ATTEMPTS", 3),
		RetryBackoff:  sc.MayDuration("RETRY_BACKOFF", 500*time.Millisecond),
	}
}
