package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

const tabWidth = 4

type palette struct {
	err, warn, info, note, help, caret, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan, color.Bold),
		note:  color.New(color.FgBlue, color.Bold),
		help:  color.New(color.FgGreen),
		caret: color.New(color.FgRed),
		dim:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.help, p.caret, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes every diagnostic of bag (sorted beforehand by the caller)
// as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	   3 | v.push(4);
//	     | ^~~~~~~~~
//
// followed by notes and fix suggestions when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	pal := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for i, d := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, pal)
	}
	if bag.Dropped() > 0 {
		fmt.Fprintf(w, "\n%s\n", pal.dim.Sprintf("... %d more diagnostics not shown", bag.Dropped()))
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		location(fs, d.Primary, opts.PathMode),
		pal.severity(d.Severity).Sprint(d.Severity.String()),
		pal.severity(d.Severity).Sprint(d.Code.ID()),
		d.Message)
	excerpt(w, fs, d.Primary, opts.Context, pal.caret)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"), location(fs, n.Span, opts.PathMode), n.Msg)
			excerpt(w, fs, n.Span, 0, pal.note)
		}
	}
	if opts.ShowFixes {
		for i, fix := range d.Fixes {
			fmt.Fprintf(w, "  %s %s (%s)\n", pal.help.Sprintf("fix #%d:", i+1), fix.Title, fix.Applicability)
			for _, edit := range fix.Edits {
				fmt.Fprintf(w, "    edit %s apply=%q\n", location(fs, edit.Span, opts.PathMode), edit.NewText)
				if !opts.ShowPreview {
					continue
				}
				preview, err := buildFixEditPreview(fs, edit)
				if err != nil {
					continue
				}
				fmt.Fprintln(w, "    preview:")
				for _, line := range preview.before {
					fmt.Fprintf(w, "      - %s\n", line)
				}
				for _, line := range preview.after {
					fmt.Fprintf(w, "      %s %s\n", pal.help.Sprint("+"), line)
				}
			}
		}
	}
}

func location(fs *source.FileSet, span source.Span, mode PathMode) string {
	if int(span.File) >= fs.Len() {
		return "<unknown>"
	}
	f := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(mode.String(), fs.BaseDir()), start.Line, start.Col)
}

// excerpt prints the line holding span.Start, preceded by up to context
// lines, and underlines the span on that line.
func excerpt(w io.Writer, fs *source.FileSet, span source.Span, context int, c *color.Color) {
	if int(span.File) >= fs.Len() {
		return
	}
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	first := max(int(start.Line)-context, 1)
	gutter := len(fmt.Sprint(start.Line))

	for ln := first; ln <= int(start.Line); ln++ {
		fmt.Fprintf(w, "  %*d | %s\n", gutter, ln, expandTabs(f.GetLine(uint32(ln)))) //nolint:gosec // ln <= start.Line
	}

	line := f.GetLine(start.Line)
	from := min(int(start.Col-1), len(line))
	to := len(line)
	if end.Line == start.Line {
		to = min(int(end.Col-1), len(line))
	}
	pad := runewidth.StringWidth(expandTabs(line[:from]))
	width := max(runewidth.StringWidth(expandTabs(line[from:to])), 1)
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "  %s | %s%s\n", strings.Repeat(" ", gutter), strings.Repeat(" ", pad), c.Sprint(marker))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}
