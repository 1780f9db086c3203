package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

func TestJSONBasic(t *testing.T) {
	bag, fs := aliasingBag(t, "main.rsl")

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("want one diagnostic, got %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "BRW4003" {
		t.Errorf("severity/code = %s/%s", d.Severity, d.Code)
	}
	if d.Location.File != "main.rsl" || d.Location.StartLine != 4 || d.Location.StartCol != 5 || d.Location.EndCol != 14 {
		t.Errorf("location = %+v", d.Location)
	}
	if d.Notes != nil || d.Fixes != nil {
		t.Errorf("notes and fixes must be opt-in: %+v", d)
	}
}

func TestJSONWithNotesAndFixes(t *testing.T) {
	bag, fs := aliasingBag(t, "main.rsl")

	opts := JSONOpts{PathMode: PathModeBasename, IncludeNotes: true, IncludeFixes: true, IncludePreviews: true}
	out := BuildDiagnosticsOutput(bag, fs, opts)
	d := out.Diagnostics[0]
	if len(d.Notes) != 1 || d.Notes[0].Message != "immutable borrow occurs here" {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if d.Notes[0].Location.StartLine != 0 {
		t.Error("positions were not requested")
	}
	if len(d.Fixes) != 1 {
		t.Fatalf("fixes = %+v", d.Fixes)
	}
	fix := d.Fixes[0]
	if fix.Title != "rename" || fix.Applicability != "always-safe" || len(fix.Edits) != 1 {
		t.Fatalf("fix = %+v", fix)
	}
	edit := fix.Edits[0]
	if edit.NewText != "head" || len(edit.AfterLines) != 1 || edit.AfterLines[0] != "    let head = &v[0];" {
		t.Fatalf("edit = %+v", edit)
	}
}

func TestJSONMaxAndDropped(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("a.rsl", []byte("abc\n"))
	bag := diag.NewBag(2)
	for i := range 3 {
		bag.Add(diag.NewError(diag.BorrowUseAfterMove, source.Span{File: file, Start: uint32(i), End: uint32(i + 1)}, "moved"))
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	if out.Dropped != 1 {
		t.Fatalf("dropped = %d", out.Dropped)
	}
}

func TestSarif(t *testing.T) {
	bag, fs := aliasingBag(t, "/work/src/main.rsl")
	other := source.NewFileSetWithBase("/work")
	file := other.AddVirtual("/work/lib.rsl", []byte("fn f() {}\n"))
	warn := diag.NewBag(0)
	warn.Add(diag.New(diag.SevWarning, diag.SynExpectSemicolon, source.Span{File: file, Start: 0, End: 2}, "warn"))

	var buf bytes.Buffer
	meta := SarifRunMeta{ToolName: "borrowck", ToolVersion: "1.0.0", InvocationArgs: []string{"check", "src"}}
	if err := Sarif(&buf, meta, Input{Bag: bag, FileSet: fs}, Input{Bag: warn, FileSet: other}); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	if len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "SYN2012" || run.Tool.Driver.Rules[1].ID != "BRW4003" {
		t.Fatalf("rules = %+v", run.Tool.Driver.Rules)
	}
	if len(run.Results) != 2 {
		t.Fatalf("results = %+v", run.Results)
	}
	res := run.Results[0]
	if res.Level != "error" || res.Locations[0].PhysicalLocation.ArtifactLocation.URI != "src/main.rsl" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.RelatedLocations) != 1 || res.RelatedLocations[0].PhysicalLocation.Region.StartLine != 3 {
		t.Fatalf("related = %+v", res.RelatedLocations)
	}
	if len(res.Fixes) != 1 || res.Fixes[0].ArtifactChanges[0].Replacements[0].InsertedContent.Text != "head" {
		t.Fatalf("fixes = %+v", res.Fixes)
	}
	if run.Results[1].Level != "warning" {
		t.Fatalf("second result level = %s", run.Results[1].Level)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Fatalf("invocations = %+v", run.Invocations)
	}
}
