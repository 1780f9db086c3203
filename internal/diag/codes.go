package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexUnterminatedChar         Code = 1005

	// Парсерные
	SynUnexpectedToken    Code = 2001
	SynUnclosedParen      Code = 2006
	SynUnclosedBrace      Code = 2007
	SynUnclosedBracket    Code = 2008
	SynExpectSemicolon    Code = 2012
	SynForMissingIn       Code = 2013
	SynUnexpectedTopLevel Code = 2101
	SynExpectIdentifier   Code = 2102
	SynExpectType         Code = 2202
	SynExpectExpression   Code = 2203
	SynExpectColon        Code = 2204

	// Семантические
	SemaUnresolvedSymbol Code = 3005
	SemaBreakOutsideLoop Code = 3010
	SemaArityMismatch    Code = 3011

	// Ownership and borrowing
	BorrowUseAfterMove         Code = 4001
	BorrowMoveWhileBorrowed    Code = 4002
	BorrowWriteWhileRead       Code = 4003
	BorrowWriteWhileWrite      Code = 4004
	BorrowReadWhileWrite       Code = 4005
	BorrowAssignToImmutable    Code = 4006
	BorrowOfMovedOrUninit      Code = 4007
	BorrowUseOfUninitialized   Code = 4008
	BorrowDroppedWhileBorrowed Code = 4009

	// IO
	IOLoadFileError Code = 5001
	IOCacheError    Code = 5002

	// Internal
	InternalAnalysisLimit Code = 9001
	InternalMalformedMIR  Code = 9002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                 "Unknown error",
		LexUnknownChar:              "Unknown character",
		LexUnterminatedString:       "Unterminated string",
		LexUnterminatedBlockComment: "Unterminated block comment",
		LexBadNumber:                "Bad number literal",
		LexUnterminatedChar:         "Unterminated char literal",
		SynUnexpectedToken:          "Unexpected token",
		SynUnclosedParen:            "Unclosed parenthesis",
		SynUnclosedBrace:            "Unclosed brace",
		SynUnclosedBracket:          "Unclosed bracket",
		SynExpectSemicolon:          "Expected semicolon",
		SynForMissingIn:             "Expected 'in' in for loop",
		SynUnexpectedTopLevel:       "Unexpected top-level item",
		SynExpectIdentifier:         "Expected identifier",
		SynExpectType:               "Expected type",
		SynExpectExpression:         "Expected expression",
		SynExpectColon:              "Expected colon",
		SemaUnresolvedSymbol:        "Unresolved symbol",
		SemaBreakOutsideLoop:        "break or continue outside of a loop",
		SemaArityMismatch:           "Wrong number of arguments",
		BorrowUseAfterMove:          "Use of moved value",
		BorrowMoveWhileBorrowed:     "Move out of borrowed value",
		BorrowWriteWhileRead:        "Mutable access while shared borrow is live",
		BorrowWriteWhileWrite:       "Mutable access while mutable borrow is live",
		BorrowReadWhileWrite:        "Shared access while mutable borrow is live",
		BorrowAssignToImmutable:     "Assignment to immutable binding",
		BorrowOfMovedOrUninit:       "Borrow of moved or uninitialized value",
		BorrowUseOfUninitialized:    "Use of possibly uninitialized value",
		BorrowDroppedWhileBorrowed:  "Borrowed value dropped while still in use",
		IOLoadFileError:             "Failed to load file",
		IOCacheError:                "Cache failure",
		InternalAnalysisLimit:       "Analysis iteration limit exceeded",
		InternalMalformedMIR:        "Malformed control-flow graph",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("BRW%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 9000 && ic < 10000:
		return fmt.Sprintf("INT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// IsBorrow reports whether the code belongs to the ownership checker.
func (c Code) IsBorrow() bool {
	return c >= 4000 && c < 5000
}
