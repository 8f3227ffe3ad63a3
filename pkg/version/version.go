// Package version holds build metadata injected at link time.
package version

import (
	"fmt"
	"runtime/debug"
)

const (
	devVersion = "dev"
	unknown    = "unknown"

	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	shortCommitLen  = 12
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/dimlens/pkg/version.Version=...".
var (
	Version = devVersion
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset metadata from the build info embedded by the
// go toolchain. Values injected with -ldflags win.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	applyBuildInfo(info)
}

func applyBuildInfo(info *debug.BuildInfo) {
	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case settingRevision:
			if Commit == unknown && s.Value != "" {
				Commit = s.Value[:min(len(s.Value), shortCommitLen)]
			}
		case settingTime:
			if Date == unknown && s.Value != "" {
				Date = s.Value
			}
		}
	}
}

// String renders the metadata as printed by the version command.
func String() string {
	return fmt.Sprintf("dimlens %s (commit: %s, built: %s)", Version, Commit, Date)
}
