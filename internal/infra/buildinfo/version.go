package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

var (
	fillOnce sync.Once
	filled   Info
)

// Get returns the build information.
func Get() Info {
	fillOnce.Do(func() {
		filled = Info{Version: Version, Commit: Commit, BuildTime: BuildTime, GoVersion: GoVersion}
		if filled.GoVersion == "unknown" {
			filled.GoVersion = runtime.Version()
		}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if filled.Commit == "unknown" && len(s.Value) >= 7 {
					filled.Commit = s.Value[:7]
				}
			case "vcs.time":
				if filled.BuildTime == "unknown" {
					filled.BuildTime = s.Value
				}
			}
		}
	})
	return filled
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ") built at " + i.BuildTime + " with " + i.GoVersion
}

// UserAgent identifies outbound clients, e.g. "statehttpd-cli/v1.2.0".
func UserAgent(program string) string {
	return program + "/" + Get().Version
}
