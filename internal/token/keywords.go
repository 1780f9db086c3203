package token

var keywords = map[string]Kind{
	"fn":       KwFn,
	"let":      KwLet,
	"mut":      KwMut,
	"if":       KwIf,
	"else":     KwElse,
	"while":    KwWhile,
	"loop":     KwLoop,
	"for":      KwFor,
	"in":       KwIn,
	"break":    KwBreak,
	"continue": KwContinue,
	"return":   KwReturn,
	"struct":   KwStruct,
	"impl":     KwImpl,
	"self":     KwSelf,
	"true":     KwTrue,
	"false":    KwFalse,
	"pub":      KwPub,
	"use":      KwUse,
}

// LookupKeyword reports whether ident is a keyword. Keywords are case-sensitive.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
