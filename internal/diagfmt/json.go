package diagfmt

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// FixEditJSON представляет одно редактирование для JSON
type FixEditJSON struct {
	Location    LocationJSON `json:"location"`
	NewText     string       `json:"new_text"`
	OldText     string       `json:"old_text,omitempty"`
	BeforeLines []string     `json:"before_lines,omitempty"`
	AfterLines  []string     `json:"after_lines,omitempty"`
}

// FixJSON представляет предложение по исправлению для JSON
type FixJSON struct {
	Title         string        `json:"title"`
	Applicability string        `json:"applicability"`
	Edits         []FixEditJSON `json:"edits,omitempty"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
	Fixes    []FixJSON    `json:"fixes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, fs *source.FileSet, pathMode PathMode, includePositions bool) LocationJSON {
	if int(span.File) >= fs.Len() {
		return LocationJSON{StartByte: span.Start, EndByte: span.End}
	}
	f := fs.Get(span.File)
	loc := LocationJSON{
		File:      f.FormatPath(pathMode.String(), fs.BaseDir()),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	if includePositions {
		startPos, endPos := fs.Resolve(span)
		loc.StartLine = startPos.Line
		loc.StartCol = startPos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	diagnostics := make([]DiagnosticJSON, 0, len(items))

	for _, d := range items {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, fs, opts.PathMode, opts.IncludePositions),
		}

		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{
					Message:  note.Msg,
					Location: makeLocation(note.Span, fs, opts.PathMode, opts.IncludePositions),
				}
			}
		}

		if opts.IncludeFixes && len(d.Fixes) > 0 {
			fixes := slices.Clone(d.Fixes)
			slices.SortStableFunc(fixes, func(a, b *diag.Fix) int {
				if n := cmp.Compare(a.Applicability, b.Applicability); n != 0 {
					return n
				}
				return cmp.Compare(a.Title, b.Title)
			})
			dj.Fixes = make([]FixJSON, 0, len(fixes))
			for _, fix := range fixes {
				fj := FixJSON{
					Title:         fix.Title,
					Applicability: fix.Applicability.String(),
					Edits:         make([]FixEditJSON, len(fix.Edits)),
				}
				for k, edit := range fix.Edits {
					ej := FixEditJSON{
						Location: makeLocation(edit.Span, fs, opts.PathMode, opts.IncludePositions),
						NewText:  edit.NewText,
						OldText:  edit.OldText,
					}
					if opts.IncludePreviews {
						if preview, err := buildFixEditPreview(fs, edit); err == nil {
							ej.BeforeLines = preview.before
							ej.AfterLines = preview.after
						}
					}
					fj.Edits[k] = ej
				}
				dj.Fixes = append(dj.Fixes, fj)
			}
		}

		diagnostics = append(diagnostics, dj)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
		Dropped:     bag.Dropped(),
	}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
