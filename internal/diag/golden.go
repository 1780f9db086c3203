package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"borrowck/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatGoldenDiagnostics renders diagnostics one per line in a stable order,
// suitable for golden files. Paths are relative to the file set base directory.
func FormatGoldenDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return formatDiagnostics(diags, fs, includeNotes, "relative")
}

// FormatShortDiagnostics is the CLI short form; pathMode follows File.FormatPath.
func FormatShortDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool, pathMode string) string {
	return formatDiagnostics(diags, fs, includeNotes, pathMode)
}

func formatDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool, pathMode string) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	groups := make([]goldenGroup, 0, len(diags))
	for _, d := range diags {
		if g, ok := renderGroup(d, fs, includeNotes, pathMode); ok {
			groups = append(groups, g)
		}
	}

	// notes stay right after their diagnostic; only groups are reordered
	sort.SliceStable(groups, func(i, j int) bool {
		di, dj := groups[i].head, groups[j].head
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	write := func(d goldenDiagnostic) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
	}
	for _, g := range groups {
		write(g.head)
		for _, n := range g.notes {
			write(n)
		}
	}
	return b.String()
}

type goldenGroup struct {
	head  goldenDiagnostic
	notes []goldenDiagnostic
}

func renderGroup(d *Diagnostic, fs *source.FileSet, includeNotes bool, pathMode string) (goldenGroup, bool) {
	loc, ok := resolveSpan(fs, d.Primary, pathMode)
	if !ok {
		return goldenGroup{}, false
	}
	g := goldenGroup{head: goldenDiagnostic{
		Severity: d.Severity.Label(),
		Code:     d.Code.ID(),
		Path:     loc.Path,
		Line:     loc.Line,
		Column:   loc.Column,
		Message:  sanitizeMessage(d.Message),
	}}

	if includeNotes {
		for _, note := range d.Notes {
			nloc, nok := resolveSpan(fs, note.Span, pathMode)
			if !nok {
				continue
			}
			g.notes = append(g.notes, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Path:     nloc.Path,
				Line:     nloc.Line,
				Column:   nloc.Column,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}
	return g, true
}

type resolvedSpan struct {
	Path   string
	Line   uint32
	Column uint32
}

func resolveSpan(fs *source.FileSet, span source.Span, pathMode string) (resolvedSpan, bool) {
	if int(span.File) >= fs.Len() {
		return resolvedSpan{}, false
	}
	file := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return resolvedSpan{
		Path:   normalizePath(file.FormatPath(pathMode, fs.BaseDir())),
		Line:   start.Line,
		Column: start.Col,
	}, true
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
