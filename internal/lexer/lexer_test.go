package lexer_test

import (
	"testing"

	"borrowck/internal/diag"
	"borrowck/internal/lexer"
	"borrowck/internal/source"
	"borrowck/internal/token"
)

func makeTestLexer(input string) (*lexer.Lexer, *diag.Bag) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.rsl", []byte(input)))
	bag := diag.NewBag(0)
	return lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}}), bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func expectKinds(t *testing.T, input string, want ...token.Kind) []token.Token {
	t.Helper()
	lx, bag := makeTestLexer(input)
	toks := lx.All()
	got := kinds(toks)
	want = append(want, token.EOF)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", input, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d is %v, want %v (all: %v)", input, i, got[i], want[i], got)
		}
	}
	if bag.Len() != 0 {
		t.Fatalf("%q: unexpected diagnostics: %v", input, bag.Items()[0].Message)
	}
	return toks
}

func TestLetAndBorrow(t *testing.T) {
	toks := expectKinds(t, "let mut v = vec![1, 2];\nlet r = &mut v[0];",
		token.KwLet, token.KwMut, token.Ident, token.Assign, token.Ident, token.Bang,
		token.LBracket, token.IntLit, token.Comma, token.IntLit, token.RBracket, token.Semicolon,
		token.KwLet, token.Ident, token.Assign, token.Amp, token.KwMut, token.Ident,
		token.LBracket, token.IntLit, token.RBracket, token.Semicolon,
	)
	if toks[2].Text != "v" {
		t.Errorf("ident text = %q", toks[2].Text)
	}
	if len(toks[12].Leading) == 0 || toks[12].Leading[0].Kind != token.TriviaNewline {
		t.Errorf("second let should carry a newline trivia, got %+v", toks[12].Leading)
	}
}

func TestLifetimesAndChars(t *testing.T) {
	toks := expectKinds(t, "fn f<'a>(x: &'a str) -> char { 'x' }",
		token.KwFn, token.Ident, token.Lt, token.Lifetime, token.Gt, token.LParen,
		token.Ident, token.Colon, token.Amp, token.Lifetime, token.Ident, token.RParen,
		token.Arrow, token.Ident, token.LBrace, token.CharLit, token.RBrace,
	)
	if toks[3].Text != "'a" {
		t.Errorf("lifetime text = %q", toks[3].Text)
	}
	expectKinds(t, `'\n' '\''`, token.CharLit, token.CharLit)
}

func TestNumbers(t *testing.T) {
	toks := expectKinds(t, "0 1_000 0xff 1.5 2e3 10u8 3f64 0..n",
		token.IntLit, token.IntLit, token.IntLit, token.FloatLit, token.FloatLit,
		token.IntLit, token.FloatLit, token.IntLit, token.DotDot, token.Ident,
	)
	if toks[5].Text != "10u8" {
		t.Errorf("suffix lost: %q", toks[5].Text)
	}
	// tuple-style field access must not lex as float
	expectKinds(t, "t.0", token.Ident, token.Dot, token.IntLit)
}

func TestOperators(t *testing.T) {
	expectKinds(t, "a += b -= c == d != e <= f >= g && h || i :: j -> k => l ..= m",
		token.Ident, token.PlusAssign, token.Ident, token.MinusAssign, token.Ident, token.EqEq,
		token.Ident, token.BangEq, token.Ident, token.LtEq, token.Ident, token.GtEq, token.Ident,
		token.AndAnd, token.Ident, token.OrOr, token.Ident, token.ColonColon, token.Ident,
		token.Arrow, token.Ident, token.FatArrow, token.Ident, token.DotDotEq, token.Ident,
	)
	expectKinds(t, "#[derive(Debug)]",
		token.Hash, token.LBracket, token.Ident, token.LParen, token.Ident, token.RParen, token.RBracket)
}

func TestComments(t *testing.T) {
	toks := expectKinds(t, "// line\n/* outer /* nested */ */ x /// doc\n",
		token.Ident)
	var sawBlock bool
	for _, tr := range toks[0].Leading {
		if tr.Kind == token.TriviaBlockComment {
			sawBlock = true
			if tr.Text != "/* outer /* nested */ */" {
				t.Errorf("block comment text = %q", tr.Text)
			}
		}
	}
	if !sawBlock {
		t.Error("block comment trivia missing")
	}
}

func TestUnicodeIdentNormalized(t *testing.T) {
	// "é" written as e + combining acute accent
	toks := expectKinds(t, "let cafe\u0301 = 1;", token.KwLet, token.Ident, token.Assign, token.IntLit, token.Semicolon)
	if toks[1].Text != "caf\u00e9" {
		t.Errorf("identifier not NFC-normalized: %q", toks[1].Text)
	}
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		input string
		code  diag.Code
	}{
		{`"open`, diag.LexUnterminatedString},
		{"/* never closed", diag.LexUnterminatedBlockComment},
		{"let x = $;", diag.LexUnknownChar},
		{"'+x", diag.LexUnterminatedChar},
		{"0x", diag.LexBadNumber},
	}
	for _, tc := range cases {
		lx, bag := makeTestLexer(tc.input)
		toks := lx.All()
		if toks[len(toks)-1].Kind != token.EOF {
			t.Errorf("%q: lexing did not reach EOF", tc.input)
		}
		if bag.Len() == 0 {
			t.Errorf("%q: expected %s", tc.input, tc.code.ID())
			continue
		}
		if got := bag.Items()[0].Code; got != tc.code {
			t.Errorf("%q: got %s, want %s", tc.input, got.ID(), tc.code.ID())
		}
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	lx, _ := makeTestLexer("a b")
	if lx.Peek().Text != "a" || lx.Next().Text != "a" || lx.Next().Text != "b" {
		t.Fatal("peek/next sequence broken")
	}
	if lx.Next().Kind != token.EOF || lx.Next().Kind != token.EOF {
		t.Fatal("EOF must be sticky")
	}
}
