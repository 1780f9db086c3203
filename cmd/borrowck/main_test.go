package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const moveProgram = `fn main() {
    let v1 = vec![1, 2, 3];
    let v2 = v1;
    println!("{:?}", v1);
}
`

const loopProgram = `fn main() {
    let mut i = 0;
    while i < 3 {
        i += 1;
    }
}
`

const cleanProgram = `fn main() {
    let mut v = vec![1, 2, 3];
    borrow_fn(&v[0], &v[1]);
    v.push(4);
}

fn borrow_fn(r1: &i32, r2: &i32) {
    println!("{} {}", *r1, *r2);
}
`

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestCheckReportsUseAfterMove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, moveProgram)

	out, _, err := execute(t, "", "check", "--format", "short", path)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	if !strings.Contains(out, "error BRW4001 ") || !strings.Contains(out, "main.rsl:4:") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckCleanFileSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)

	out, _, err := execute(t, "", "check", "--format", "short", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got:\n%s", out)
	}
}

func TestCheckReadsStdin(t *testing.T) {
	out, _, err := execute(t, moveProgram, "check", "--format", "short", "-")
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	if !strings.Contains(out, "<stdin>:4:") {
		t.Fatalf("expected stdin location, got:\n%s", out)
	}
}

func TestCheckFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "borrowck.toml"), "[analysis]\nmax_iterations = 1\n")
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, loopProgram)

	out, _, err := execute(t, "", "check", "--format", "short", path)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	if !strings.Contains(out, "INT9001") {
		t.Fatalf("expected iteration limit diagnostic, got:\n%s", out)
	}

	out, _, err = execute(t, "", "check", "--format", "short", "--max-iterations", "100", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
}

func TestCheckDirJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rsl"), moveProgram)
	writeFile(t, filepath.Join(dir, "sub", "b.rsl"), cleanProgram)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a program")

	out, _, err := execute(t, "", "check", "--format", "json", "--ui", "off", dir)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(decoded), decoded)
	}
}

func TestCheckEmitRegions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)

	out, _, err := execute(t, "", "check", "--emit-mir", "--emit-regions", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "fn main: ") || !strings.Contains(out, "fn borrow_fn: ") {
		t.Fatalf("expected region dumps, got:\n%s", out)
	}
	if !strings.Contains(out, "funcs=2") || !strings.Contains(out, "bb0") {
		t.Fatalf("expected MIR dump, got:\n%s", out)
	}
}

func TestCheckTraceFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)
	tracePath := filepath.Join(dir, "trace.log")

	if _, _, err := execute(t, "", "--trace", tracePath, "--trace-format", "ndjson", "check", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line is not JSON: %v\n%s", err, line)
		}
		names[ev.Name] = true
	}
	if !names["check_file"] {
		t.Fatalf("no check_file span in %v", names)
	}

	_, _, err = execute(t, "", "--trace", tracePath, "--trace-format", "xml", "check", path)
	if err == nil || errors.Is(err, errDiagnostics) {
		t.Fatalf("expected a trace format error, got %v", err)
	}
}

func TestCheckTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)

	_, errOut, err := execute(t, "", "--timings", "check", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "timings:") || !strings.Contains(errOut, "borrowck") {
		t.Fatalf("expected timings on stderr, got:\n%s", errOut)
	}
}

func TestCheckCacheAndClean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "borrowck.toml"), "[cache]\nenabled = true\ndir = \"cache\"\n")
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, moveProgram)

	first, _, err := execute(t, "", "check", "--format", "short", path)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	second, _, err := execute(t, "", "check", "--format", "short", path)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("cached run: expected errDiagnostics, got %v", err)
	}
	if first != second {
		t.Fatalf("cached output differs:\n%s\nvs\n%s", first, second)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected cache entries, got %v (%v)", entries, err)
	}

	out, _, err := execute(t, "", "clean", dir)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.HasPrefix(out, "cleared ") {
		t.Fatalf("unexpected clean output %q", out)
	}
	entries, err = os.ReadDir(filepath.Join(dir, "cache"))
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty cache, got %v (%v)", entries, err)
	}
}

func TestCheckWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)
	cpu := filepath.Join(dir, "cpu.pprof")
	heap := filepath.Join(dir, "heap.pprof")

	if _, _, err := execute(t, "", "--cpu-profile", cpu, "--mem-profile", heap, "check", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{cpu, heap} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("profile not written: %v", err)
		}
	}
}

func TestFixAddsMut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, "fn main() {\n    let x = 1;\n    x = 2;\n    println!(\"{}\", x);\n}\n")

	out, _, err := execute(t, "", "fix", "--dry-run", path)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "Would apply 1 fix(es):") {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}

	out, _, err = execute(t, "", "fix", "--all", path)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "let mut x = 1;") {
		t.Fatalf("fix not applied:\n%s\noutput:\n%s", data, out)
	}

	if _, _, err := execute(t, "", "check", path); err != nil {
		t.Fatalf("fixed program still fails: %v", err)
	}
	out, _, err = execute(t, "", "fix", path)
	if err != nil || !strings.Contains(out, "No applicable fixes found.") {
		t.Fatalf("second fix: %v\n%s", err, out)
	}
}

func TestCheckRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	writeFile(t, path, cleanProgram)

	_, _, err := execute(t, "", "check", "--format", "xml", path)
	if err == nil || errors.Is(err, errDiagnostics) {
		t.Fatalf("expected a usage error, got %v", err)
	}
}

func TestCheckMissingTarget(t *testing.T) {
	_, _, err := execute(t, "", "check", filepath.Join(t.TempDir(), "absent.rsl"))
	if err == nil || errors.Is(err, errDiagnostics) {
		t.Fatalf("expected a stat error, got %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	out, _, err := execute(t, "", "version", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out)
	}
	if info["version"] == "" || info["go_version"] == nil {
		t.Fatalf("missing fields in %v", info)
	}
}

func TestColorEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	cases := []struct {
		mode string
		tty  bool
		want bool
	}{
		{"on", false, true},
		{"off", true, false},
		{"auto", true, true},
		{"auto", false, false},
	}
	for _, tc := range cases {
		got, err := colorEnabled(tc.mode, tc.tty)
		if err != nil {
			t.Fatalf("%s: %v", tc.mode, err)
		}
		if got != tc.want {
			t.Errorf("colorEnabled(%q, %v) = %v, want %v", tc.mode, tc.tty, got, tc.want)
		}
	}
	if _, err := colorEnabled("sometimes", false); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
