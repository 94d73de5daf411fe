// Package version identifies the running loam build. Release builds get
// their identity injected through -ldflags; anything built straight from a
// checkout falls back to the VCS metadata Go embeds, yielding a dev-<rev>
// identifier that the upgrade checker treats as a development line.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at release time via
// -ldflags "-X .../internal/version.Version=v1.2.3 ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the full build identity, as printed by `loam version`.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
}

// GetBuildInfo collects the build identity of the running binary.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// GetVersion returns the version identifier: the ldflags value when set,
// otherwise the module version from the build info, otherwise dev-<rev>
// from the embedded VCS revision. A bare "dev" means a local checkout with
// no usable metadata at all.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
		if rev := buildSetting(info, "vcs.revision"); len(rev) >= 7 {
			return "dev-" + rev[:7]
		}
	}

	return "dev"
}

// GetGitCommit returns the commit hash the binary was built from.
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if rev := buildSetting(info, "vcs.revision"); rev != "" {
			return rev
		}
	}

	return "unknown"
}

// GetShortVersion returns a single-line identifier for status output.
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()

	if commit != "unknown" && len(commit) >= 7 {
		if v != "dev" {
			return fmt.Sprintf("%s (%s)", v, commit[:7])
		}
		return "dev-" + commit[:7]
	}

	return v
}

// GetDetailedVersion returns a multi-line report of the build identity.
func GetDetailedVersion() string {
	info := GetBuildInfo()

	lines := []string{fmt.Sprintf("Version: %s", info.Version)}
	if info.GitCommit != "unknown" {
		lines = append(lines, fmt.Sprintf("Commit: %s", info.GitCommit))
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, fmt.Sprintf("Built: %s", info.BuildTime.Format(time.RFC3339)))
	}
	lines = append(lines,
		fmt.Sprintf("Go: %s", info.GoVersion),
		fmt.Sprintf("Platform: %s", info.Platform))

	return strings.Join(lines, "\n")
}

// IsRelease reports whether the binary carries a tagged release version
// rather than a dev or dev-<rev> identifier.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

// IsDirty reports whether the working tree had uncommitted changes when
// the binary was built.
func IsDirty() bool {
	if info, ok := debug.ReadBuildInfo(); ok {
		return buildSetting(info, "vcs.modified") == "true"
	}
	return false
}

// buildSetting looks up one key in the embedded build settings.
func buildSetting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// parseBuildTime accepts the RFC3339 stamp release scripts inject, with or
// without the zone suffix. Anything unparseable becomes the zero time and
// is simply not printed.
func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
