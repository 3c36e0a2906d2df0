// Package misc holds build information.
package misc

import (
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X rgbafb/misc.version=... -X rgbafb/misc.buildHash=...".
var (
	version   = ""
	buildHash = ""
)

const appName = "rgbafb"

func GetAppName() string {
	return appName
}

// GetVersion returns module version from linker flags or build info.
func GetVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	return "dev"
}

// GetGitHash returns short VCS revision, "unknown" when not available.
func GetGitHash() string {
	if buildHash != "" {
		return buildHash
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	var rev string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return "unknown"
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if dirty {
		rev += "+"
	}
	return rev
}
