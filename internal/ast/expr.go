package ast

import (
	"borrowck/internal/source"
)

type ExprKind uint8

const (
	ExprIdent ExprKind = iota
	ExprSelf
	ExprPath // A::b
	ExprLit
	ExprBinary
	ExprUnary
	ExprRef // &e, &mut e
	ExprCall
	ExprMethodCall
	ExprMember
	ExprIndex
	ExprMacro // name!(...) / name![...]
	ExprStruct
	ExprGroup
	ExprRange
	ExprTuple
)

type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

type ExprLitKind uint8

const (
	ExprLitInt ExprLitKind = iota
	ExprLitFloat
	ExprLitString
	ExprLitChar
	ExprLitBool
)

type ExprBinaryOp uint8

const (
	ExprBinaryAdd ExprBinaryOp = iota
	ExprBinarySub
	ExprBinaryMul
	ExprBinaryDiv
	ExprBinaryMod
	ExprBinaryEq
	ExprBinaryNotEq
	ExprBinaryLess
	ExprBinaryLessEq
	ExprBinaryGreater
	ExprBinaryGreaterEq
	ExprBinaryLogicalAnd
	ExprBinaryLogicalOr
	ExprBinaryBitAnd
	ExprBinaryBitOr
)

var binaryOpText = [...]string{
	ExprBinaryAdd:        "+",
	ExprBinarySub:        "-",
	ExprBinaryMul:        "*",
	ExprBinaryDiv:        "/",
	ExprBinaryMod:        "%",
	ExprBinaryEq:         "==",
	ExprBinaryNotEq:      "!=",
	ExprBinaryLess:       "<",
	ExprBinaryLessEq:     "<=",
	ExprBinaryGreater:    ">",
	ExprBinaryGreaterEq:  ">=",
	ExprBinaryLogicalAnd: "&&",
	ExprBinaryLogicalOr:  "||",
	ExprBinaryBitAnd:     "&",
	ExprBinaryBitOr:      "|",
}

func (op ExprBinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// IsComparison reports whether the operator yields a bool from two operands.
func (op ExprBinaryOp) IsComparison() bool {
	return op >= ExprBinaryEq && op <= ExprBinaryGreaterEq
}

type ExprUnaryOp uint8

const (
	ExprUnaryNeg ExprUnaryOp = iota
	ExprUnaryNot
	ExprUnaryDeref
)

type ExprIdentData struct {
	Name source.StringID
}

type ExprPathData struct {
	Segments []source.StringID
}

type ExprLiteralData struct {
	Kind  ExprLitKind
	Value source.StringID // raw text
}

type ExprBinaryData struct {
	Op    ExprBinaryOp
	Left  ExprID
	Right ExprID
}

type ExprUnaryData struct {
	Op      ExprUnaryOp
	Operand ExprID
}

type ExprRefData struct {
	Mutable bool
	Operand ExprID
}

type ExprCallData struct {
	Target ExprID
	Args   []ExprID
}

type ExprMethodCallData struct {
	Receiver   ExprID
	Method     source.StringID
	MethodSpan source.Span
	Args       []ExprID
}

type ExprMemberData struct {
	Target ExprID
	Field  source.StringID
}

type ExprIndexData struct {
	Target ExprID
	Index  ExprID
}

type ExprMacroData struct {
	Name source.StringID
	Args []ExprID // format strings are kept as literal args
}

type StructLitField struct {
	Name  source.StringID
	Value ExprID
	Span  source.Span
}

type ExprStructData struct {
	Name   source.StringID
	Fields []StructLitField
}

type ExprGroupData struct {
	Inner ExprID
}

type ExprRangeData struct {
	Lo        ExprID // may be NoExprID
	Hi        ExprID // may be NoExprID
	Inclusive bool
}

type ExprTupleData struct {
	Elems []ExprID
}
