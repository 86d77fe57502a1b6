// Package version carries the build information of the molten CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"

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
	versionColor = color.New(color.FgYellow, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

// String renders the version line printed by "molten version".
func String(colored bool) string {
	for _, c := range []*color.Color{versionColor, labelColor} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	s := "molten " + versionColor.Sprint(Version)
	if GitCommit != "" {
		s += fmt.Sprintf(" %s %s", labelColor.Sprint("commit"), GitCommit)
	}
	if BuildDate != "" {
		s += fmt.Sprintf(" %s %s", labelColor.Sprint("built"), BuildDate)
	}
	return s
}
