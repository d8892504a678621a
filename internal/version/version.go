package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the binary name used in logs and the HTTP User-Agent.
const Name = "emby-beta-updater"

// commitLength is how much of a VCS revision Full prints.
const commitLength = 12

// Build metadata, set through -ldflags "-X".
var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns only the version string.
func Short() string {
	return Version
}

// Full describes the build: version, commit, build time and the platform the binary targets.
// Binaries built with `go install` carry no ldflags, so the commit and time then come from
// the VCS stamp the toolchain embeds.
func Full() string {
	commit, builtAt := Commit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		commit, builtAt = fromBuildSettings(info.Settings, commit, builtAt)
	}

	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s/%s)",
		Name, Version, commit, builtAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent with every request to the release feed.
func UserAgent() string {
	return Name + "/" + Version
}

// fromBuildSettings fills a commit or build time that was not injected at link time.
func fromBuildSettings(settings []debug.BuildSetting, commit, builtAt string) (string, string) {
	for _, s := range settings {
		switch {
		case s.Key == "vcs.revision" && commit == "none" && s.Value != "":
			commit = s.Value
			if len(commit) > commitLength {
				commit = commit[:commitLength]
			}
		case s.Key == "vcs.time" && builtAt == "unknown" && s.Value != "":
			builtAt = s.Value
		}
	}

	return commit, builtAt
}
