// Package buildinfo provides build-time properties injected via ldflags.
//
//	go build -ldflags "-X github.com/nomis52/neongrid/buildinfo.version=v1.2.0"
package buildinfo

import "runtime/debug"

// Properties holds build-time properties.
type Properties struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Package-level variables for ldflags injection (unexported).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Get returns the current build properties. Values not injected at link
// time fall back to the module's embedded VCS settings when present.
func Get() Properties {
	p := Properties{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return p
	}
	p.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if p.GitCommit == "unknown" {
				p.GitCommit = s.Value
			}
		case "vcs.time":
			if p.BuildTime == "unknown" {
				p.BuildTime = s.Value
			}
		}
	}
	return p
}
