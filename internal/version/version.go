// Package version carries build metadata of the borrowck binary.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

// These variables can be overridden at build time via -ldflags, e.g.
//
//	-X borrowck/internal/version.GitCommit=$(git rev-parse HEAD)
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the JSON form printed by `borrowck version --format json`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get collects the metadata. A missing commit falls back to the VCS stamp
// the Go toolchain embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.GitCommit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = s.Value
				}
			}
		}
	}
	return info
}

// Colored renders the version with each semver component in its own color.
// Colors follow color.NoColor.
func Colored(v string) string {
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	out := versionMajorColor.Sprint(parts[0]) + "." + versionMinorColor.Sprint(parts[1]) + "." + versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Text is the human readable multi-line form.
func (i Info) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "borrowck %s\n", Colored(i.Version))
	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Fprintf(&sb, "commit:   %s\n", commit)
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&sb, "built:    %s\n", i.BuildDate)
	}
	fmt.Fprintf(&sb, "go:       %s %s\n", i.GoVersion, i.Platform)
	return sb.String()
}

func (i Info) JSON() ([]byte, error) {
	return json.MarshalIndent(i, "", "  ")
}
