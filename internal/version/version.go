// Package version holds the build metadata of sdslmix. The variables can be
// overridden at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the JSON form of the build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Go        string `json:"go"`
}

func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate, Go: runtime.Version()}
}

// Banner is the one-line version text, with the version parts colored when
// colored is set.
func Banner(colored bool) string {
	v := Version
	if colored {
		v = paint(Version)
	}
	out := "sdslmix " + v
	if GitCommit != "" {
		out += fmt.Sprintf(" (%s)", shortCommit(GitCommit))
	}
	if BuildDate != "" {
		out += " built " + BuildDate
	}
	return out
}

// paint colors major, minor and patch; a pre-release suffix stays plain.
func paint(v string) string {
	core, suffix, hasSuffix := strings.Cut(v, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	sprint := func(c *color.Color, s string) string {
		c.EnableColor()
		return c.Sprint(s)
	}
	out := sprint(majorColor, parts[0]) + "." + sprint(minorColor, parts[1]) + "." + sprint(patchColor, parts[2])
	if hasSuffix {
		out += "-" + suffix
	}
	return out
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
