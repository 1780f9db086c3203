package borrowck

import (
	"errors"
	"strings"
	"testing"

	"borrowck/internal/ast"
	"borrowck/internal/dataflow"
	"borrowck/internal/diag"
	"borrowck/internal/lexer"
	"borrowck/internal/mir"
	"borrowck/internal/parser"
	"borrowck/internal/source"
)

func lowerSource(t *testing.T, src string) *mir.Module {
	t.Helper()
	fs := source.NewFileSetWithBase("")
	fileID := fs.AddVirtual("test.rs", []byte(src))
	bag := diag.NewBag(0)
	b := ast.NewBuilder(ast.Hints{}, nil)
	lx := lexer.New(fs.Get(fileID), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	res := parser.ParseFile(lx, b, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	m, err := mir.LowerFile(b, res.File, mir.LowerOptions{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("LowerFile: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("front end diagnostics: %s", bag.Items()[0].Message)
	}
	return m
}

func checkAll(t *testing.T, src string, opts Options) map[string]*Result {
	t.Helper()
	out := make(map[string]*Result)
	for _, fn := range lowerSource(t, src).Funcs {
		res, err := Check(fn, opts)
		if err != nil {
			t.Fatalf("Check(%s): %v", fn.Name, err)
		}
		out[fn.Name] = res
	}
	return out
}

func checkMain(t *testing.T, src string) *Result {
	t.Helper()
	res, ok := checkAll(t, src, Options{})["main"]
	if !ok {
		t.Fatal("main not lowered")
	}
	return res
}

func codes(res *Result) string {
	ids := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		ids = append(ids, d.Kind.Code().ID())
	}
	return strings.Join(ids, " ")
}

func spanText(src string, sp source.Span) string {
	return src[sp.Start:sp.End]
}

const borrowAcrossPush = `fn main() {
    let mut v = vec![1, 2, 3];
    let r1 = &v[0];
    let r2 = &v[1];
    v.push(4);
    println!("{} {}", r1, r2);
}
`

const uniqueThenShared = `fn main() {
    let mut v = vec![1, 2, 3];
    let r1 = &mut v[0];
    let r2 = &v[1];
    v.push(4);
    println!("{} {}", r1, r2);
}
`

const forLoopBinding = `struct A {
    val: i32,
}

impl A {
    fn mutate(&mut self) {
        self.read()
    }

    fn read(&self) {}
}

fn main() {
    let mut v = vec![1, 2, 3];

    for elem in v.iter_mut() {
        elem = 5;
    }
    println!("{:?}", v);
}
`

func TestCorpusScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		// want lists the codes per function; unlisted functions must be clean
		want map[string]string
	}{
		{
			name: "shared loans read after push",
			src:  borrowAcrossPush,
			want: map[string]string{"main": "BRW4003 BRW4003"},
		},
		{
			name: "loans end inside the call",
			src: `fn main() {
    let mut v = vec![1, 2, 3];
    borrow_fn(&v[0], &v[1]);
    v.push(4);
}

fn borrow_fn(r1: &i32, r2: &i32) {
    println!("{} {}", *r1, *r2);
}
`,
		},
		{
			name: "returned reference keeps both loans",
			src: `fn main() {
    let mut v = vec![1, 2, 3];
    let r = borrow_fn(&v[0], &v[1]);
    v.push(4);
    println!("{}", r);
}

fn borrow_fn<'a>(r1: &'a i32, r2: &'a i32) -> &'a i32 {
    println!("{} {}", *r1, *r2);
    if r1 > r2 {
        r1
    } else {
        r2
    }
}
`,
			want: map[string]string{"main": "BRW4003 BRW4003"},
		},
		{
			name: "unique then shared then push",
			src:  uniqueThenShared,
			want: map[string]string{"main": "BRW4005 BRW4003 BRW4004"},
		},
		{
			name: "use after move",
			src: `fn main() {
    let v1 = vec![1, 2, 3];
    let v2 = v1;
    println!("{:?}", v1);
}
`,
			want: map[string]string{"main": "BRW4001"},
		},
		{
			name: "reassignment revives a moved binding",
			src: `fn main() {
    let mut v1 = vec![1, 2, 3];
    let v2 = v1;
    v1 = vec![];
    println!("{:?}", v1);
}
`,
		},
		{
			name: "assignment to an immutable loop binding",
			src:  forLoopBinding,
			want: map[string]string{"main": "BRW4006"},
		},
		{
			name: "assignment through the loop binding",
			src:  strings.Replace(forLoopBinding, "elem = 5;", "*elem = 5;", 1),
		},
		{
			name: "owned and borrowed strings",
			src: `fn main() {
    let s = "mój string";

    let owned_s = s.to_string();
    let owned_s2 = s.to_owned();

    let ref_s = owned_s.as_str();
    let ref_s2 = &owned_s2[..];

    println!("{}", owned_s);
    println!("{}", owned_s2);

    println!("{}", ref_s);
    println!("{}", ref_s2);
}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, res := range checkAll(t, tt.src, Options{}) {
				if got := codes(res); got != tt.want[name] {
					t.Errorf("%s: codes = %q, want %q", name, got, tt.want[name])
					for _, d := range res.Diagnostics {
						t.Logf("  %s at %s: %s", d.Kind, spanText(tt.src, d.Span), d.Message)
					}
				}
			}
		})
	}
}

func TestAliasingNotesPointAtLoans(t *testing.T) {
	res := checkMain(t, borrowAcrossPush)
	if len(res.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(res.Diagnostics))
	}
	wantLoans := []string{"&v[0]", "&v[1]"}
	for i, d := range res.Diagnostics {
		if d.Kind != WriteWhileRead || !d.Kind.IsAliasing() {
			t.Fatalf("diagnostic %d: kind %s", i, d.Kind)
		}
		if got := spanText(borrowAcrossPush, d.Span); got != "v.push(4)" {
			t.Errorf("diagnostic %d: primary %q", i, got)
		}
		if d.Related == nil {
			t.Fatalf("diagnostic %d has no related loan", i)
		}
		if got := spanText(borrowAcrossPush, d.Related.Span); got != wantLoans[i] {
			t.Errorf("diagnostic %d: related %q, want %q", i, got, wantLoans[i])
		}
		if d.Related.Label != "immutable borrow occurs here" {
			t.Errorf("diagnostic %d: label %q", i, d.Related.Label)
		}
		if d.PlaceText != "v" {
			t.Errorf("diagnostic %d: place %q", i, d.PlaceText)
		}
	}
}

func TestUseAfterMovePointsAtMove(t *testing.T) {
	src := `fn main() {
    let v1 = vec![1, 2, 3];
    let v2 = v1;
    println!("{:?}", v1);
}
`
	res := checkMain(t, src)
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %q", codes(res))
	}
	d := res.Diagnostics[0]
	if d.Message != "use of moved value: `v1`" {
		t.Errorf("message %q", d.Message)
	}
	if d.Related == nil || d.Related.Label != "value moved here" {
		t.Fatalf("related = %+v", d.Related)
	}
	if d.Related.Span.Start >= d.Span.Start || spanText(src, d.Related.Span) != "v1" {
		t.Errorf("related span %q should precede the use", spanText(src, d.Related.Span))
	}
}

func TestLoopBackEdgeMove(t *testing.T) {
	res := checkMain(t, `fn consume(v: Vec<i32>) {}

fn main() {
    let v = vec![1];
    let mut i = 0;
    while i < 3 {
        consume(v);
        i += 1;
    }
}
`)
	if got := codes(res); got != "BRW4001" {
		t.Fatalf("codes = %q, want BRW4001", got)
	}
	d := res.Diagnostics[0]
	if d.Related == nil || d.Related.Label != "value moved here, in previous iteration of loop" {
		t.Fatalf("related = %+v", d.Related)
	}
	if d.Related.Point != d.Point {
		t.Errorf("the loop moves at the same point: %v vs %v", d.Related.Point, d.Point)
	}
}

func TestBranchMergeMaybeMoved(t *testing.T) {
	res := checkMain(t, `fn main(c: bool) {
    let v = vec![1];
    if c {
        let w = v;
    }
    println!("{:?}", v);
}
`)
	if got := codes(res); got != "BRW4001" {
		t.Fatalf("codes = %q, want BRW4001", got)
	}
	if rel := res.Diagnostics[0].Related; rel == nil || rel.Label != "value moved here" {
		t.Fatalf("related = %+v", rel)
	}
}

func TestViolationKinds(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"uninitialized read", "let x: i32;\n    println!(\"{}\", x);", "BRW4008"},
		{"dropped while borrowed", "let r;\n    {\n        let x = 5;\n        r = &x;\n    }\n    println!(\"{}\", r);", "BRW4009"},
		{"move while borrowed", "let v = vec![1];\n    let r = &v;\n    let w = v;\n    println!(\"{:?}\", r);", "BRW4002"},
		{"borrow of moved", "let v = vec![1];\n    let w = v;\n    let r = &v;", "BRW4007"},
		{"assign through shared reference", "let mut x = 1;\n    let r = &x;\n    *r = 2;", "BRW4006"},
		{"mutable borrow of immutable binding", "let v = vec![1];\n    v.push(2);", "BRW4006"},
		{"reassign immutable after move", "let v = vec![1];\n    let w = v;\n    v = vec![2];", "BRW4006"},
		{"write while shared", "let mut x = 1;\n    let r = &x;\n    x = 2;\n    println!(\"{}\", r);", "BRW4003"},
		{"read while unique", "let mut x = 1;\n    let r = &mut x;\n    println!(\"{}\", x);\n    println!(\"{}\", r);", "BRW4005"},
		{"push while iterating", "let mut v = vec![1];\n    for x in &v {\n        v.push(*x);\n    }", "BRW4003"},
		{"shared loans coexist", "let v = vec![1];\n    let a = &v;\n    let b = &v;\n    println!(\"{:?} {:?}\", a, b);", ""},
		{"last use before push", "let mut v = vec![1, 2];\n    let a = &v[0];\n    let b = &v[1];\n    println!(\"{} {}\", a, b);\n    v.push(3);", ""},
		{"push before last use", "let mut v = vec![1, 2];\n    let a = &v[0];\n    let b = &v[1];\n    v.push(3);\n    println!(\"{} {}\", a, b);", "BRW4003 BRW4003"},
		{"reborrows through a unique reference", "let mut v = vec![1];\n    let r = &mut v;\n    r.push(2);\n    r.push(3);\n    v.push(4);", ""},
		{"arguments before receiver", "let mut v = vec![1];\n    v.push(v.len());", ""},
		{"no borrows or moves", "let x = 1;\n    let y = x + 2;\n    println!(\"{}\", y);", ""},
		{"deferred copy binding", "let x;\n    x = 5;\n    let y = x;\n    println!(\"{} {}\", x, y);", ""},
		{"deferred unique reference as receiver", "let mut v = vec![1];\n    let r;\n    r = &mut v;\n    r.push(2);", ""},
		{"write through deferred shared reference", "let mut x = 1;\n    let r;\n    r = &x;\n    *r = 2;", "BRW4006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "fn main() {\n    " + tt.body + "\n}\n"
			res := checkMain(t, src)
			if got := codes(res); got != tt.want {
				t.Errorf("codes = %q, want %q", got, tt.want)
				for _, d := range res.Diagnostics {
					t.Logf("  %s at %q: %s", d.Kind, spanText(src, d.Span), d.Message)
				}
			}
		})
	}
}

func TestSplitConstantIndices(t *testing.T) {
	res, ok := checkAll(t, uniqueThenShared, Options{SplitConstantIndices: true})["main"]
	if !ok {
		t.Fatal("main not lowered")
	}
	if got := codes(res); got != "BRW4003 BRW4004" {
		t.Fatalf("codes = %q, want the push conflicts only", got)
	}
}

func TestRegionsFollowLastUse(t *testing.T) {
	res := checkMain(t, "fn main() {\n    let mut v = vec![1, 2];\n    let a = &v[0];\n    let b = &v[1];\n    println!(\"{} {}\", a, b);\n    v.push(3);\n}\n")
	if len(res.Loans) != 3 || len(res.Regions) != 3 {
		t.Fatalf("expected 3 loans and regions, got %d and %d", len(res.Loans), len(res.Regions))
	}
	first := res.Regions[0]
	if !first.Contains(res.Loans[1].Point) {
		t.Errorf("loan of a must be live where b is borrowed")
	}
	if first.Contains(res.Loans[2].Point) {
		t.Errorf("loan of a must be dead at the push")
	}
	if !res.Loans[2].Unique() || res.Loans[2].Holder == mir.NoLocalID {
		t.Errorf("push borrows uniquely into a temporary: %+v", res.Loans[2])
	}
}

func TestCheckIterationLimit(t *testing.T) {
	m := lowerSource(t, "fn main() {\n    let mut i = 0;\n    while i < 3 {\n        i += 1;\n    }\n}\n")
	_, err := Check(m.Funcs[0], Options{MaxIterations: 1})
	if !errors.Is(err, ErrAnalysisLimit) || !errors.Is(err, dataflow.ErrLimitExceeded) {
		t.Fatalf("expected a wrapped limit error, got %v", err)
	}
}

func TestOptionsLimit(t *testing.T) {
	if got := (Options{}).Limit(); got != dataflow.DefaultMaxBlockVisits {
		t.Errorf("default limit = %d, want %d", got, dataflow.DefaultMaxBlockVisits)
	}
	if got := (Options{MaxIterations: 7}).Limit(); got != 7 {
		t.Errorf("limit = %d, want 7", got)
	}
}

func TestCheckRejectsMalformedMIR(t *testing.T) {
	fn := &mir.Func{
		Name:   "broken",
		Locals: []mir.Local{{Name: "_0", Flags: mir.LocalReturn | mir.LocalMutable}},
		Blocks: []mir.Block{{ID: 0, Term: mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 3}}}},
	}
	if _, err := Check(fn, Options{}); !errors.Is(err, mir.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestReportCarriesNotesAndFix(t *testing.T) {
	res := checkMain(t, forLoopBinding)
	bag := diag.NewBag(0)
	res.Report(diag.BagReporter{Bag: bag})
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.BorrowAssignToImmutable || d.Severity != diag.SevError {
		t.Fatalf("unexpected diagnostic %s %s", d.Code.ID(), d.Severity)
	}
	if d.Message != "cannot assign twice to immutable variable `elem`" {
		t.Errorf("message %q", d.Message)
	}
	if len(d.Fixes) != 1 || len(d.Fixes[0].Edits) != 1 {
		t.Fatalf("expected a single-edit fix, got %+v", d.Fixes)
	}
	edit := d.Fixes[0].Edits[0]
	if edit.NewText != "mut " || int(edit.Span.Start) != strings.Index(forLoopBinding, "elem in") || !edit.Span.Empty() {
		t.Errorf("fix should insert `mut ` before the binding, got %+v", edit)
	}

	bag = diag.NewBag(0)
	checkMain(t, borrowAcrossPush).Report(diag.BagReporter{Bag: bag})
	for _, d := range bag.Items() {
		if d.Code != diag.BorrowWriteWhileRead || len(d.Notes) != 1 {
			t.Errorf("expected BRW4003 with a note, got %s with %d notes", d.Code.ID(), len(d.Notes))
		}
	}
}

func TestJoinOwnership(t *testing.T) {
	tests := []struct {
		a, b, want Ownership
	}{
		{Owned, Owned, Owned},
		{Owned, Moved, MaybeMoved},
		{Moved, MaybeMoved, MaybeMoved},
		{Owned, Uninit, MaybeUninit},
		{Moved, Uninit, MaybeUninit},
		{MaybeUninit, Owned, MaybeUninit},
		{Uninit, Uninit, Uninit},
	}
	for _, tt := range tests {
		if got := joinOwnership(tt.a, tt.b); got != tt.want {
			t.Errorf("%s ⊔ %s = %s, want %s", tt.a, tt.b, got, tt.want)
		}
		if got := joinOwnership(tt.b, tt.a); got != tt.want {
			t.Errorf("join is not symmetric for %s, %s", tt.a, tt.b)
		}
	}
}
