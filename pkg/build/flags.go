// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata of the pav binary. The name, build
// timestamp, Git commit and semantic version are embedded at link time:
//
//	go build -ldflags "-X pav/pkg/build.buildName=pav -X pav/pkg/build.buildVersion=0.1.0 ..."
//
// A binary linked without any of them is a development build and reports
// placeholder values.
package build

import "fmt"

// Description is the one line summary shown in the CLI help.
const Description = "Frame analysis engine for audio visualizers"

// Info holds the build information of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the version line printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = devBuild()
)

func devBuild() *Info {
	return &Info{
		Name:    "pav",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize validates and copies build information from ldflags variables
// into the build info. It must run before GetBuildFlags is used. A binary
// built without any flags keeps the development defaults; one built with only
// some of them is rejected.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		buildFlags = devBuild()
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags = &Info{
		Name:    buildName,
		Time:    buildTime,
		Commit:  buildCommit,
		Version: buildVersion,
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}
