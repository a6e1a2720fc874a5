// Package version reports what build is running and which persisted model
// layout it reads
package version

import (
	"runtime/debug"
	"sync"

	"churnlearn/internal/core/pipeline"
)

// set with -ldflags "-X churnlearn/internal/core/version.version=v0.3.0 -X ...commit=... -X ...date=..."
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo is served by /meta/version and stamped into the OpenAPI document
type BuildInfo struct {
	Service   string `json:"service"        example:"churnlearn"`
	Version   string `json:"version"        example:"v0.3.0"`
	Commit    string `json:"commit"         example:"4f2c1e9"`
	Date      string `json:"date"           example:"2026-03-02T08:00:00Z"`
	GoVersion string `json:"go_version"     example:"go1.25.0"`
	// ModelEnvelope is the pipeline blob version this build can load
	ModelEnvelope int `json:"model_envelope" example:"1"`
}

var vcs = sync.OnceValue(func() BuildInfo {
	var b BuildInfo
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Commit = s.Value
		case "vcs.time":
			b.Date = s.Value
		}
	}
	return b
})

// Info returns the build information. Linker flags win over the VCS stamp
// the go toolchain embeds
func Info() BuildInfo {
	b := vcs()
	b.Service = "churnlearn"
	b.Version = version
	b.ModelEnvelope = pipeline.EnvelopeVersion
	if commit != "" {
		b.Commit = commit
	}
	if date != "" {
		b.Date = date
	}
	if len(b.Commit) > 12 {
		b.Commit = b.Commit[:12]
	}
	return b
}
