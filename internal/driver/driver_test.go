package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"golang.org/x/tools/txtar"

	"borrowck/internal/borrowck"
	"borrowck/internal/config"
	"borrowck/internal/diag"
	"borrowck/internal/testkit"
	"borrowck/internal/trace"
)

// lines renders every diagnostic as "<line> <code>".
func lines(res *Result) []string {
	var out []string
	for _, d := range res.Bag.Items() {
		start, _ := res.FileSet.Resolve(d.Primary)
		out = append(out, fmt.Sprintf("%d %s", start.Line, d.Code.ID()))
	}
	return out
}

func TestGolden(t *testing.T) {
	archives, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) == 0 {
		t.Fatal("no golden archives")
	}
	for _, path := range archives {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatal(err)
			}
			dir := t.TempDir()
			var want string
			hasConfig := false
			for _, f := range ar.Files {
				if f.Name == "want" {
					want = strings.TrimSpace(string(f.Data))
					continue
				}
				if f.Name == "borrowck.toml" {
					hasConfig = true
				}
				if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o600); err != nil {
					t.Fatal(err)
				}
			}
			cfg := config.Default()
			if hasConfig {
				if cfg, err = config.Load(filepath.Join(dir, "borrowck.toml")); err != nil {
					t.Fatal(err)
				}
			}
			opts := FromConfig(cfg)
			opts.MaxDiagnostics = 0
			res, err := CheckFile(context.Background(), filepath.Join(dir, "main.rsl"), opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(lines(res), "\n"); got != want {
				t.Errorf("diagnostics mismatch\ngot:\n%s\nwant:\n%s\n%s", got, want,
					diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, true, "basename"))
			}
		})
	}
}

func TestCheckFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.rsl")
	res, err := CheckFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("a missing file is a diagnostic, got error %v", err)
	}
	if !res.HasErrors() || res.Bag.Len() != 1 {
		t.Fatalf("want one error, got %d", res.Bag.Len())
	}
	got := diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, false, "basename")
	if !strings.HasPrefix(got, "error IO5001 missing.rsl:1:1 cannot read ") {
		t.Fatalf("short output = %q", got)
	}
}

func TestSyntaxErrorsStopBeforeBorrowck(t *testing.T) {
	src := "fn main() {\n    let v = vec![1];\n    let w = v\n    println!(\"{:?}\", v);\n}\n"
	res, err := CheckSource(context.Background(), "bad.rsl", []byte(src), Options{KeepMIR: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasErrors() {
		t.Fatal("expected a syntax error")
	}
	for _, d := range res.Bag.Items() {
		if d.Code.IsBorrow() {
			t.Errorf("borrow check ran on a file with syntax errors: %s", d.Code.ID())
		}
	}
	if res.Funcs != nil {
		t.Error("nothing should be lowered")
	}
}

func TestIterationLimitNoteShowsEffectiveCap(t *testing.T) {
	src := "fn main() {\n    let mut i = 0;\n    while i < 3 {\n        i += 1;\n    }\n}\n"
	for _, tc := range []struct {
		max  int
		want string
	}{
		{1, "(currently 1)"},
		{2, "(currently 2)"},
	} {
		res, err := CheckSource(context.Background(), "loop.rsl", []byte(src), Options{Borrow: borrowck.Options{MaxIterations: tc.max}})
		if err != nil {
			t.Fatal(err)
		}
		items := res.Bag.Items()
		if len(items) != 1 || items[0].Code != diag.InternalAnalysisLimit || len(items[0].Notes) != 1 {
			t.Fatalf("max %d: unexpected diagnostics %v", tc.max, lines(res))
		}
		if note := items[0].Notes[0].Msg; !strings.HasSuffix(note, tc.want) {
			t.Errorf("max %d: note %q, want suffix %q", tc.max, note, tc.want)
		}
	}
}

func TestKeepMIR(t *testing.T) {
	src := "fn a() {}\n\nfn b(x: i32) -> i32 {\n    x\n}\n"
	res, err := CheckSource(context.Background(), "m.rsl", []byte(src), Options{KeepMIR: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", lines(res))
	}
	if len(res.Funcs) != 2 || len(res.Analyses) != 2 {
		t.Fatalf("funcs=%d analyses=%d", len(res.Funcs), len(res.Analyses))
	}
	if res.Funcs[0].Name != "a" || res.Analyses[1].Func != res.Funcs[1] {
		t.Error("analyses must follow the source order of functions")
	}
	for _, fn := range res.Funcs {
		if err := testkit.CheckMIRSpans(fn); err != nil {
			t.Error(err)
		}
	}

	res, err = CheckSource(context.Background(), "m.rsl", []byte(src), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Funcs != nil || res.Analyses != nil {
		t.Error("MIR is dropped unless requested")
	}
}

func TestTimings(t *testing.T) {
	res, err := CheckSource(context.Background(), "m.rsl", []byte("fn main() {}\n"), Options{Timings: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Timing == nil {
		t.Fatal("no timing report")
	}
	var names []string
	for _, p := range res.Timing.Phases {
		names = append(names, p.Name)
	}
	if !slices.Equal(names, []string{"parse", "lower_mir", "borrowck"}) {
		t.Fatalf("phases = %v", names)
	}
}

const useAfterMove = "fn main() {\n    let v1 = vec![1, 2, 3];\n    let v2 = v1;\n    println!(\"{:?}\", v1);\n}\n"

func TestCacheReplaysDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rsl")
	if err := os.WriteFile(path, []byte(useAfterMove), 0o600); err != nil {
		t.Fatal(err)
	}
	cache, err := OpenDiskCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache}

	first, err := CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || !second.Cached {
		t.Fatalf("cached flags = %v, %v", first.Cached, second.Cached)
	}
	render := func(r *Result) string {
		return diag.FormatShortDiagnostics(r.Bag.Items(), r.FileSet, true, "basename")
	}
	if render(first) != render(second) {
		t.Fatalf("replay differs:\n%s\n---\n%s", render(first), render(second))
	}
	if len(second.Bag.Items()[0].Notes) != 1 {
		t.Error("notes were not cached")
	}

	// options that change the outcome miss the cache
	opts.Borrow.SplitConstantIndices = true
	third, err := CheckFile(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("a different configuration hit the cache")
	}

	// so does an edited file
	if err := os.WriteFile(path, []byte("fn main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fourth, err := CheckFile(context.Background(), path, Options{Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if fourth.Cached || fourth.Bag.Len() != 0 {
		t.Errorf("edited file: cached=%v diags=%d", fourth.Cached, fourth.Bag.Len())
	}
}

func TestCacheCorruptEntry(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Cache: cache}
	res, err := CheckSource(context.Background(), "main.rsl", []byte(useAfterMove), opts)
	if err != nil {
		t.Fatal(err)
	}
	key := cacheKey(res.FileSet.Get(res.File), &opts)
	if err := os.WriteFile(cache.pathFor(key), []byte("not msgpack"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err = CheckSource(context.Background(), "main.rsl", []byte(useAfterMove), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Cached {
		t.Fatal("a corrupt entry must not be served")
	}
	if got := strings.Join(lines(res), ","); got != "1 IO5002,4 BRW4001" {
		t.Fatalf("diagnostics = %s", got)
	}

	res, err = CheckSource(context.Background(), "main.rsl", []byte(useAfterMove), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached || strings.Join(lines(res), ",") != "4 BRW4001" {
		t.Fatalf("rebuilt entry: cached=%v diags=%v", res.Cached, lines(res))
	}

	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := cache.get(key); hit {
		t.Error("DropAll left the entry behind")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) final() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Status)
	for _, ev := range s.events {
		out[ev.File] = ev.Status
	}
	return out
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCheckDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b/clean.rsl":   "fn main() {}\n",
		"a.rsl":         useAfterMove,
		"vendor/x.rsl":  useAfterMove,
		"notes.txt":     "not a program",
		"gen_skip.rsl":  useAfterMove,
		"c/deep/d.rsl":  "fn f(x: i32) -> i32 {\n    x\n}\n",
		"c/deep/e.rs":   "fn main() {}\n",
		"c/deep/e.rsl~": "backup",
	})
	sink := &recordingSink{}
	opts := Options{
		Files:    config.Files{Extensions: []string{".rsl", ".rs"}, Exclude: []string{"vendor", "gen_*"}},
		Jobs:     2,
		Progress: sink,
	}
	results, err := CheckDir(context.Background(), root, opts)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.FileSet.Get(r.File).FormatPath("relative", root))
	}
	want := []string{"a.rsl", "b/clean.rsl", "c/deep/d.rsl", "c/deep/e.rs"}
	if !slices.Equal(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	if !results[0].HasErrors() || results[1].HasErrors() || results[2].HasErrors() {
		t.Fatal("only a.rsl has errors")
	}
	if results[0].FileSet != results[3].FileSet {
		t.Error("results of one directory share a file set")
	}

	final := sink.final()
	if final[results[0].Path] != StatusError || final[results[1].Path] != StatusDone {
		t.Errorf("final statuses = %v", final)
	}
}

func TestCheckDirCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.rsl": useAfterMove, "b.rsl": useAfterMove})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := CheckDir(ctx, root, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
}

func TestCheckDirMissing(t *testing.T) {
	if _, err := CheckDir(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Fatal("expected a walk error")
	}
}

func TestTraceSpans(t *testing.T) {
	ring := trace.NewRingTracer(0, trace.LevelDebug)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := CheckSource(ctx, "m.rsl", []byte(useAfterMove), Options{}); err != nil {
		t.Fatal(err)
	}
	var begins []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindBegin {
			begins = append(begins, ev.Name)
		}
	}
	if !slices.Equal(begins, []string{"check_file", "parse", "lower_mir", "borrowck", "main"}) {
		t.Fatalf("spans = %v", begins)
	}
}
