// Package diagfmt renders a diag.Bag for people and tools: a pretty form
// with source excerpts, the one-line short form, JSON and SARIF 2.1.0.
package diagfmt

import (
	"fmt"
	"strings"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// Format names an output renderer.
type Format uint8

const (
	FormatPretty Format = iota
	FormatShort
	FormatJSON
	FormatSarif
)

var formatNames = [...]string{
	FormatPretty: "pretty",
	FormatShort:  "short",
	FormatJSON:   "json",
	FormatSarif:  "sarif",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(f), nil //nolint:gosec // index of a four element array
		}
	}
	return FormatPretty, fmt.Errorf("unknown format %q (expected: pretty|short|json|sarif)", s)
}

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute ones.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// String is the mode name understood by source.File.FormatPath.
func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color       bool
	Context     int // extra source lines shown above the primary line
	PathMode    PathMode
	ShowNotes   bool
	ShowFixes   bool
	ShowPreview bool
	Max         int // 0 means no limit
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	Max              int
	IncludeNotes     bool
	IncludeFixes     bool
	IncludePreviews  bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	InvocationArgs []string
}

// Input pairs a bag with the file set its spans refer to.
type Input struct {
	Bag     *diag.Bag
	FileSet *source.FileSet
}
