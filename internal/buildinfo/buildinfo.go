// Package buildinfo carries the version metadata stamped into the
// binary via -ldflags, plus a little process runtime info.
package buildinfo

import (
	"runtime"
	"time"
)

// Overridden at build time, e.g.
//
//	go build -ldflags "-X .../internal/buildinfo.Version=v0.3.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var started = time.Now()

// Info is the metadata reported by the version subcommand and the
// /v1/version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Uptime    string `json:"uptime"`
}

// Current collects the build and runtime metadata.
func Current() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Uptime:    time.Since(started).Truncate(time.Second).String(),
	}
}
