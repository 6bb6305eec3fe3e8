// Package version carries build metadata for the regmetal binary.
package version

import (
	"runtime/debug"
)

// Set through -ldflags "-X github.com/Sumatoshi-tech/regmetal/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	shortHashLen    = 12
)

// InitBinaryVersion fills unset metadata from the module build info when
// the binary was built without ldflags (go install).
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case settingRevision:
			if Commit == "none" {
				Commit = setting.Value
				if len(Commit) > shortHashLen {
					Commit = Commit[:shortHashLen]
				}
			}
		case settingTime:
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for `regmetal version`.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
