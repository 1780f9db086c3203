package parser

import (
	"fmt"
	"strings"
	"testing"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/lexer"
	"borrowck/internal/source"
	"borrowck/internal/testkit"
)

func parseSource(t *testing.T, src string) (*ast.Builder, ast.FileID, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSetWithBase("")
	fileID := fs.AddVirtual("test.rsl", []byte(src))
	bag := diag.NewBag(0)
	builder := ast.NewBuilder(ast.Hints{}, nil)
	lx := lexer.New(fs.Get(fileID), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	res := ParseFile(lx, builder, Options{Reporter: diag.BagReporter{Bag: bag}})
	if bag.Len() == 0 && strings.TrimSpace(src) != "" {
		if err := testkit.CheckSpanInvariants(builder, res.File, fs.Get(fileID)); err != nil {
			t.Fatalf("span invariants: %v", err)
		}
	}
	return builder, res.File, bag
}

func diagnosticsSummary(bag *diag.Bag) string {
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func fnByName(t *testing.T, b *ast.Builder, file ast.FileID, name string) *ast.FnItem {
	t.Helper()
	for _, id := range b.Files.Get(file).Items {
		if fn, ok := b.Items.Fn(id); ok && b.Name(fn.Name) == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func blockStmts(t *testing.T, b *ast.Builder, id ast.StmtID) []ast.StmtID {
	t.Helper()
	block, ok := b.Stmts.Block(id)
	if !ok {
		t.Fatalf("statement %d is not a block", id)
	}
	return block.Stmts
}

func TestParseBorrowProgram(t *testing.T) {
	src := `fn main() {
    let mut v = vec![1, 2, 3];
    let r1 = &v[0];
    let r2 = &v[1];
    v.push(4);
    println!("{} {}", r1, r2);
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	fn := fnByName(t, b, file, "main")
	stmts := blockStmts(t, b, fn.Body)
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}

	let, ok := b.Stmts.Let(stmts[0])
	if !ok || !let.Mutable || b.Name(let.Name) != "v" {
		t.Fatalf("expected `let mut v`, got %+v", let)
	}
	if m, ok := b.Exprs.Macro(let.Value); !ok || b.Name(m.Name) != "vec" || len(m.Args) != 3 {
		t.Fatalf("expected vec! macro with 3 args")
	}

	r1, _ := b.Stmts.Let(stmts[1])
	ref, ok := b.Exprs.Ref(r1.Value)
	if !ok || ref.Mutable {
		t.Fatalf("expected shared borrow for r1")
	}
	if _, ok := b.Exprs.Index(ref.Operand); !ok {
		t.Fatalf("expected index operand under borrow")
	}

	push, ok := b.Stmts.Expr(stmts[3])
	if !ok || !push.HasSemi {
		t.Fatalf("expected expression statement for push")
	}
	call, ok := b.Exprs.MethodCall(push.Expr)
	if !ok || b.Name(call.Method) != "push" || len(call.Args) != 1 {
		t.Fatalf("expected method call push(4)")
	}
}

func TestParseLifetimeSignature(t *testing.T) {
	src := `fn borrow_fn<'a>(r1: &'a i32, r2: &'a i32) -> &'a i32 {
    if r1 > r2 {
        r1
    } else {
        r2
    }
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	fn := fnByName(t, b, file, "borrow_fn")
	if len(fn.Lifetimes) != 1 || b.Name(fn.Lifetimes[0]) != "a" {
		t.Fatalf("expected lifetime 'a, got %v", fn.Lifetimes)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	for i, param := range fn.Params {
		ty := b.Types.Get(param.Type)
		if ty == nil || ty.Kind != ast.TypeRef || ty.Mutable || b.Name(ty.Lifetime) != "a" {
			t.Fatalf("param %d: expected &'a type", i)
		}
	}
	res := b.Types.Get(fn.Result)
	if res == nil || res.Kind != ast.TypeRef {
		t.Fatalf("expected reference result type")
	}

	stmts := blockStmts(t, b, fn.Body)
	if len(stmts) != 1 {
		t.Fatalf("expected single if statement, got %d", len(stmts))
	}
	ifStmt, ok := b.Stmts.If(stmts[0])
	if !ok || !ifStmt.Else.IsValid() {
		t.Fatalf("expected if/else")
	}
	then := blockStmts(t, b, ifStmt.Then)
	tail, ok := b.Stmts.Expr(then[0])
	if !ok || tail.HasSemi {
		t.Fatalf("expected tail expression in then-branch")
	}
	if bin, ok := b.Exprs.Binary(ifStmt.Cond); !ok || bin.Op != ast.ExprBinaryGreater {
		t.Fatalf("expected '>' condition")
	}
}

func TestParseImplMethods(t *testing.T) {
	src := `struct A {
    val: i32,
}

impl A {
    fn mutate(&mut self) {
        self.read()
    }

    fn read(&self) {}

    fn take(self) -> A { self }
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	items := b.Files.Get(file).Items
	if len(items) != 5 {
		t.Fatalf("expected struct, impl and 3 methods, got %d items", len(items))
	}
	st, ok := b.Items.Struct(items[0])
	if !ok || len(st.Fields) != 1 || b.Name(st.Fields[0].Name) != "val" {
		t.Fatalf("unexpected struct %+v", st)
	}
	want := map[string]ast.SelfKind{"mutate": ast.SelfRefMut, "read": ast.SelfRef, "take": ast.SelfValue}
	for name, kind := range want {
		fn := fnByName(t, b, file, name)
		if fn.Self != kind {
			t.Errorf("%s: self kind %d, want %d", name, fn.Self, kind)
		}
		if b.Name(fn.Owner) != "A" {
			t.Errorf("%s: owner %q, want A", name, b.Name(fn.Owner))
		}
	}
}

func TestParseLoopsAndAssignments(t *testing.T) {
	src := `fn main() {
    let mut v = vec![1, 2, 3];
    for elem in v.iter_mut() {
        *elem += 5;
        elem = 5;
    }
    let mut i = 0;
    while i < 10 {
        i = i + 1;
        if i == 3 { continue; }
        if i == 8 { break; }
    }
    loop { return; }
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	stmts := blockStmts(t, b, fnByName(t, b, file, "main").Body)
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	forStmt, ok := b.Stmts.For(stmts[1])
	if !ok || b.Name(forStmt.Name) != "elem" {
		t.Fatalf("expected for loop over elem")
	}
	body := blockStmts(t, b, forStmt.Body)
	deref, ok := b.Stmts.Assign(body[0])
	if !ok || deref.Op != ast.AssignAdd {
		t.Fatalf("expected compound assignment")
	}
	if u, ok := b.Exprs.Unary(deref.Target); !ok || u.Op != ast.ExprUnaryDeref {
		t.Fatalf("expected deref target")
	}
	plain, ok := b.Stmts.Assign(body[1])
	if !ok || plain.Op != ast.AssignPlain {
		t.Fatalf("expected plain assignment")
	}
	if _, ok := b.Stmts.While(stmts[3]); !ok {
		t.Fatalf("expected while loop")
	}
	if _, ok := b.Stmts.Loop(stmts[4]); !ok {
		t.Fatalf("expected loop")
	}
}

func TestParseStructLiteralAndCondition(t *testing.T) {
	src := `struct P { x: i32, y: i32 }
fn main() {
    let x = 1;
    let p = P { x, y: 2 };
    if p.x == x { p.y; }
    let s = &p.x;
    let t = (1, 2);
    let u = t.0;
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	stmts := blockStmts(t, b, fnByName(t, b, file, "main").Body)
	let, _ := b.Stmts.Let(stmts[1])
	lit, ok := b.Exprs.Struct(let.Value)
	if !ok || len(lit.Fields) != 2 {
		t.Fatalf("expected struct literal with 2 fields")
	}
	if _, ok := b.Exprs.Ident(lit.Fields[0].Value); !ok {
		t.Fatalf("shorthand field should become an identifier")
	}
	ifStmt, ok := b.Stmts.If(stmts[2])
	if !ok {
		t.Fatalf("expected if statement")
	}
	bin, ok := b.Exprs.Binary(ifStmt.Cond)
	if !ok {
		t.Fatalf("expected binary condition")
	}
	if _, ok := b.Exprs.Ident(bin.Right); !ok {
		t.Fatalf("`x {` in a condition must not start a struct literal")
	}
	tupleField, _ := b.Stmts.Let(stmts[5])
	member, ok := b.Exprs.Member(tupleField.Value)
	if !ok || b.Name(member.Field) != "0" {
		t.Fatalf("expected tuple field access .0")
	}
}

func TestParseStringSlices(t *testing.T) {
	src := `fn main() {
    let s = "mój string";
    let owned_s2 = s.to_owned();
    let ref_s2 = &owned_s2[..];
    let n = v.iter().map(f).collect::<Vec<i32>>().len() as u64;
}
`
	b, file, bag := parseSource(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	stmts := blockStmts(t, b, fnByName(t, b, file, "main").Body)
	let, _ := b.Stmts.Let(stmts[2])
	ref, ok := b.Exprs.Ref(let.Value)
	if !ok {
		t.Fatalf("expected borrow")
	}
	idx, ok := b.Exprs.Index(ref.Operand)
	if !ok {
		t.Fatalf("expected index")
	}
	rng, ok := b.Exprs.Range(idx.Index)
	if !ok || rng.Lo.IsValid() || rng.Hi.IsValid() {
		t.Fatalf("expected full range '..'")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want diag.Code
	}{
		{"missing semicolon", "fn main() { let x = 1 let y = 2; }", diag.SynExpectSemicolon},
		{"unclosed block", "fn main() { let x = 1;", diag.SynUnclosedBrace},
		{"bad top level", "let x = 1;", diag.SynUnexpectedTopLevel},
		{"missing type", "fn f(x: ) {}", diag.SynExpectType},
		{"missing expression", "fn main() { let x = ; }", diag.SynExpectExpression},
		{"for without in", "fn main() { for x v { } }", diag.SynForMissingIn},
		{"missing colon", "fn f(x i32) {}", diag.SynExpectColon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, bag := parseSource(t, tt.src)
			found := false
			for _, d := range bag.Items() {
				if d.Code == tt.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %s, got %s", tt.want.ID(), diagnosticsSummary(bag))
			}
		})
	}
}

func TestParseRecoversAfterError(t *testing.T) {
	src := `fn broken() { let = 1; }
fn fine() { let x = 1; }
`
	b, file, bag := parseSource(t, src)
	if !bag.HasErrors() {
		t.Fatalf("expected errors")
	}
	fn := fnByName(t, b, file, "fine")
	if len(blockStmts(t, b, fn.Body)) != 1 {
		t.Fatalf("expected the second function to parse")
	}
}

func TestMissingSemicolonFix(t *testing.T) {
	_, _, bag := parseSource(t, "fn main() { let x = 1 }")
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.SynExpectSemicolon {
		t.Fatalf("expected one missing semicolon, got %s", diagnosticsSummary(bag))
	}
	fixes := items[0].Fixes
	if len(fixes) != 1 || fixes[0].Edits[0].NewText != ";" {
		t.Fatalf("expected insert ';' fix")
	}
}

func TestMaxErrorsLimit(t *testing.T) {
	fs := source.NewFileSetWithBase("")
	fileID := fs.AddVirtual("limit.rsl", []byte("fn a() { let = ; let = ; let = ; let = ; }"))
	bag := diag.NewBag(0)
	lx := lexer.New(fs.Get(fileID), lexer.Options{})
	ParseFile(lx, ast.NewBuilder(ast.Hints{}, nil), Options{
		MaxErrors: 2,
		Reporter:  diag.BagReporter{Bag: bag},
	})
	if bag.Len() > 2 {
		t.Fatalf("expected at most 2 diagnostics, got %d", bag.Len())
	}
}
