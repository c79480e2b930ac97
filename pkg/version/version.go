// Package version exposes build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set by the linker: -X github.com/Sumatoshi-tech/almanac/pkg/version.Version=v0.1.0.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Commit and Date from the embedded VCS build info
// when the linker did not set them, as with "go install".
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("almanac %s (commit: %s, built: %s)", Version, Commit, Date)
}
