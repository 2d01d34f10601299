// Package version describes the running vchat build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/vchat/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/vchat/internal/version.Commit=abc123
//	  -X github.com/soyeahso/vchat/internal/version.Date=2026-01-01"
//
// Commit and Date fall back to the VCS stamp that `go build` embeds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Build is the identity of the running binary.
type Build struct {
	Version   string
	Commit    string // short revision, "unknown" when not stamped
	Date      string
	Modified  bool // built from a dirty tree
	GoVersion string
	Platform  string // GOOS/GOARCH
}

// Current returns the build identity.
func Current() Build {
	return resolve(debug.ReadBuildInfo)
}

func resolve(read func() (*debug.BuildInfo, bool)) Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := read(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}
	b.Commit = short(b.Commit)
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// String formats the build for `vchat version`.
func (b Build) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("vchat %s (commit: %s, built: %s, %s, %s)",
		b.Version, commit, b.Date, b.GoVersion, b.Platform)
}

// Info returns the formatted identity of the running build.
func Info() string {
	return Current().String()
}

// UserAgent is sent on outbound assistant and feed requests.
func UserAgent() string {
	return "vchat/" + Version + " (" + runtime.GOOS + ")"
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
