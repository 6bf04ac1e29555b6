// Package version reports build information set through -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	-ldflags "-X github.com/rshade/cvindex/pkg/version.version=v0.3.0"
//
//nolint:gochecknoglobals // Written by the linker.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// GetVersion returns the build version.
func GetVersion() string { return version }

// GetCommit returns the git commit.
func GetCommit() string { return gitCommit }

// GetBuildDate returns the build date.
func GetBuildDate() string { return buildDate }

// Info is the full build description.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build description.
func Get() Info {
	return Info{
		Version:   version,
		Commit:    gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String is a one-line summary.
func (i Info) String() string {
	return fmt.Sprintf("cvindex %s (commit %s, built %s, %s %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
