// Package misc holds build time information about the program.
package misc

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X plumber/misc.version=... -X plumber/misc.gitHash=...".
var (
	appName = "plumber"
	version = ""
	gitHash = ""
)

// GetAppName returns name of the program.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, falling back to module build
// information when version was not set at link time.
func GetVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return "dev"
}

// GetGitHash returns commit program was built from.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
