package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	Ident
	Lifetime // 'a

	KwFn
	KwLet
	KwMut
	KwIf
	KwElse
	KwWhile
	KwLoop
	KwFor
	KwIn
	KwBreak
	KwContinue
	KwReturn
	KwStruct
	KwImpl
	KwSelf
	KwTrue
	KwFalse
	KwPub
	KwUse

	IntLit
	FloatLit
	StringLit
	CharLit

	Plus          // +
	Minus         // -
	Star          // *
	Slash         // /
	Percent       // %
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	EqEq          // ==
	Bang          // !
	BangEq        // !=
	Lt            // <
	LtEq          // <=
	Gt            // >
	GtEq          // >=
	Amp           // &
	Pipe          // |
	AndAnd        // &&
	OrOr          // ||
	Colon         // :
	ColonColon    // ::
	Semicolon     // ;
	Comma         // ,
	Dot           // .
	DotDot        // ..
	DotDotEq      // ..=
	Arrow         // ->
	FatArrow      // =>
	LParen        // (
	RParen        // )
	LBrace        // {
	RBrace        // }
	LBracket      // [
	RBracket      // ]
	Hash          // #
	Underscore    // _
	Question      // ?
)

var kindNames = [...]string{
	Invalid:       "Invalid",
	EOF:           "EOF",
	Ident:         "Ident",
	Lifetime:      "Lifetime",
	KwFn:          "fn",
	KwLet:         "let",
	KwMut:         "mut",
	KwIf:          "if",
	KwElse:        "else",
	KwWhile:       "while",
	KwLoop:        "loop",
	KwFor:         "for",
	KwIn:          "in",
	KwBreak:       "break",
	KwContinue:    "continue",
	KwReturn:      "return",
	KwStruct:      "struct",
	KwImpl:        "impl",
	KwSelf:        "self",
	KwTrue:        "true",
	KwFalse:       "false",
	KwPub:         "pub",
	KwUse:         "use",
	IntLit:        "IntLit",
	FloatLit:      "FloatLit",
	StringLit:     "StringLit",
	CharLit:       "CharLit",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Assign:        "=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
	EqEq:          "==",
	Bang:          "!",
	BangEq:        "!=",
	Lt:            "<",
	LtEq:          "<=",
	Gt:            ">",
	GtEq:          ">=",
	Amp:           "&",
	Pipe:          "|",
	AndAnd:        "&&",
	OrOr:          "||",
	Colon:         ":",
	ColonColon:    "::",
	Semicolon:     ";",
	Comma:         ",",
	Dot:           ".",
	DotDot:        "..",
	DotDotEq:      "..=",
	Arrow:         "->",
	FatArrow:      "=>",
	LParen:        "(",
	RParen:        ")",
	LBrace:        "{",
	RBrace:        "}",
	LBracket:      "[",
	RBracket:      "]",
	Hash:          "#",
	Underscore:    "_",
	Question:      "?",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}
