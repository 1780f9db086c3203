package ast

import (
	"borrowck/internal/source"
)

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena    *Arena[Expr]
	Idents   *Arena[ExprIdentData]
	Paths    *Arena[ExprPathData]
	Literals *Arena[ExprLiteralData]
	Binaries *Arena[ExprBinaryData]
	Unaries  *Arena[ExprUnaryData]
	Refs     *Arena[ExprRefData]
	Calls    *Arena[ExprCallData]
	Methods  *Arena[ExprMethodCallData]
	Members  *Arena[ExprMemberData]
	Indices  *Arena[ExprIndexData]
	Macros   *Arena[ExprMacroData]
	Structs  *Arena[ExprStructData]
	Groups   *Arena[ExprGroupData]
	Ranges   *Arena[ExprRangeData]
	Tuples   *Arena[ExprTupleData]
}

func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint/8 + 1
	return &Exprs{
		Arena:    NewArena[Expr](capHint),
		Idents:   NewArena[ExprIdentData](capHint / 2),
		Paths:    NewArena[ExprPathData](small),
		Literals: NewArena[ExprLiteralData](capHint / 4),
		Binaries: NewArena[ExprBinaryData](small),
		Unaries:  NewArena[ExprUnaryData](small),
		Refs:     NewArena[ExprRefData](small),
		Calls:    NewArena[ExprCallData](small),
		Methods:  NewArena[ExprMethodCallData](small),
		Members:  NewArena[ExprMemberData](small),
		Indices:  NewArena[ExprIndexData](small),
		Macros:   NewArena[ExprMacroData](small),
		Structs:  NewArena[ExprStructData](small),
		Groups:   NewArena[ExprGroupData](small),
		Ranges:   NewArena[ExprRangeData](small),
		Tuples:   NewArena[ExprTupleData](small),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload uint32) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) payload(id ExprID, kind ExprKind) (uint32, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != kind {
		return 0, false
	}
	return uint32(expr.Payload), true
}

func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	return e.new(ExprIdent, span, e.Idents.Allocate(ExprIdentData{Name: name}))
}

func (e *Exprs) Ident(id ExprID) (*ExprIdentData, bool) {
	p, ok := e.payload(id, ExprIdent)
	if !ok {
		return nil, false
	}
	return e.Idents.Get(p), true
}

func (e *Exprs) NewSelf(span source.Span) ExprID {
	return e.new(ExprSelf, span, 0)
}

func (e *Exprs) NewPath(span source.Span, segments []source.StringID) ExprID {
	return e.new(ExprPath, span, e.Paths.Allocate(ExprPathData{Segments: segments}))
}

func (e *Exprs) Path(id ExprID) (*ExprPathData, bool) {
	p, ok := e.payload(id, ExprPath)
	if !ok {
		return nil, false
	}
	return e.Paths.Get(p), true
}

func (e *Exprs) NewLiteral(span source.Span, kind ExprLitKind, value source.StringID) ExprID {
	return e.new(ExprLit, span, e.Literals.Allocate(ExprLiteralData{Kind: kind, Value: value}))
}

func (e *Exprs) Literal(id ExprID) (*ExprLiteralData, bool) {
	p, ok := e.payload(id, ExprLit)
	if !ok {
		return nil, false
	}
	return e.Literals.Get(p), true
}

func (e *Exprs) NewBinary(span source.Span, op ExprBinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, span, e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) Binary(id ExprID) (*ExprBinaryData, bool) {
	p, ok := e.payload(id, ExprBinary)
	if !ok {
		return nil, false
	}
	return e.Binaries.Get(p), true
}

func (e *Exprs) NewUnary(span source.Span, op ExprUnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, span, e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	p, ok := e.payload(id, ExprUnary)
	if !ok {
		return nil, false
	}
	return e.Unaries.Get(p), true
}

func (e *Exprs) NewRef(span source.Span, mutable bool, operand ExprID) ExprID {
	return e.new(ExprRef, span, e.Refs.Allocate(ExprRefData{Mutable: mutable, Operand: operand}))
}

func (e *Exprs) Ref(id ExprID) (*ExprRefData, bool) {
	p, ok := e.payload(id, ExprRef)
	if !ok {
		return nil, false
	}
	return e.Refs.Get(p), true
}

func (e *Exprs) NewCall(span source.Span, target ExprID, args []ExprID) ExprID {
	return e.new(ExprCall, span, e.Calls.Allocate(ExprCallData{Target: target, Args: args}))
}

func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	p, ok := e.payload(id, ExprCall)
	if !ok {
		return nil, false
	}
	return e.Calls.Get(p), true
}

func (e *Exprs) NewMethodCall(span source.Span, data ExprMethodCallData) ExprID {
	return e.new(ExprMethodCall, span, e.Methods.Allocate(data))
}

func (e *Exprs) MethodCall(id ExprID) (*ExprMethodCallData, bool) {
	p, ok := e.payload(id, ExprMethodCall)
	if !ok {
		return nil, false
	}
	return e.Methods.Get(p), true
}

func (e *Exprs) NewMember(span source.Span, target ExprID, field source.StringID) ExprID {
	return e.new(ExprMember, span, e.Members.Allocate(ExprMemberData{Target: target, Field: field}))
}

func (e *Exprs) Member(id ExprID) (*ExprMemberData, bool) {
	p, ok := e.payload(id, ExprMember)
	if !ok {
		return nil, false
	}
	return e.Members.Get(p), true
}

func (e *Exprs) NewIndex(span source.Span, target, index ExprID) ExprID {
	return e.new(ExprIndex, span, e.Indices.Allocate(ExprIndexData{Target: target, Index: index}))
}

func (e *Exprs) Index(id ExprID) (*ExprIndexData, bool) {
	p, ok := e.payload(id, ExprIndex)
	if !ok {
		return nil, false
	}
	return e.Indices.Get(p), true
}

func (e *Exprs) NewMacro(span source.Span, name source.StringID, args []ExprID) ExprID {
	return e.new(ExprMacro, span, e.Macros.Allocate(ExprMacroData{Name: name, Args: args}))
}

func (e *Exprs) Macro(id ExprID) (*ExprMacroData, bool) {
	p, ok := e.payload(id, ExprMacro)
	if !ok {
		return nil, false
	}
	return e.Macros.Get(p), true
}

func (e *Exprs) NewStruct(span source.Span, name source.StringID, fields []StructLitField) ExprID {
	return e.new(ExprStruct, span, e.Structs.Allocate(ExprStructData{Name: name, Fields: fields}))
}

func (e *Exprs) Struct(id ExprID) (*ExprStructData, bool) {
	p, ok := e.payload(id, ExprStruct)
	if !ok {
		return nil, false
	}
	return e.Structs.Get(p), true
}

func (e *Exprs) NewGroup(span source.Span, inner ExprID) ExprID {
	return e.new(ExprGroup, span, e.Groups.Allocate(ExprGroupData{Inner: inner}))
}

func (e *Exprs) Group(id ExprID) (*ExprGroupData, bool) {
	p, ok := e.payload(id, ExprGroup)
	if !ok {
		return nil, false
	}
	return e.Groups.Get(p), true
}

func (e *Exprs) NewRange(span source.Span, lo, hi ExprID, inclusive bool) ExprID {
	return e.new(ExprRange, span, e.Ranges.Allocate(ExprRangeData{Lo: lo, Hi: hi, Inclusive: inclusive}))
}

func (e *Exprs) Range(id ExprID) (*ExprRangeData, bool) {
	p, ok := e.payload(id, ExprRange)
	if !ok {
		return nil, false
	}
	return e.Ranges.Get(p), true
}

func (e *Exprs) NewTuple(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprTuple, span, e.Tuples.Allocate(ExprTupleData{Elems: elems}))
}

func (e *Exprs) Tuple(id ExprID) (*ExprTupleData, bool) {
	p, ok := e.payload(id, ExprTuple)
	if !ok {
		return nil, false
	}
	return e.Tuples.Get(p), true
}

// Unparen strips any number of grouping parentheses.
func (e *Exprs) Unparen(id ExprID) ExprID {
	for {
		g, ok := e.Group(id)
		if !ok {
			return id
		}
		id = g.Inner
	}
}
