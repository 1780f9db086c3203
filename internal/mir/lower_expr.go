package mir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// lowerPlaceExpr returns the place an expression denotes. Field, index and
// method receivers of reference locals are dereferenced implicitly.
func (l *funcLowerer) lowerPlaceExpr(id ast.ExprID) (Place, bool) {
	id = l.b.Exprs.Unparen(id)
	e := l.b.Exprs.Get(id)
	if e == nil {
		return Place{}, false
	}
	switch e.Kind {
	case ast.ExprIdent:
		ident, _ := l.b.Exprs.Ident(id)
		if local, ok := l.lookup(l.b.Name(ident.Name)); ok {
			return LocalPlace(local), true
		}
	case ast.ExprSelf:
		if local, ok := l.lookup("self"); ok {
			return LocalPlace(local), true
		}
	case ast.ExprMember:
		m, _ := l.b.Exprs.Member(id)
		base := l.autoDeref(l.placeOrTemp(m.Target))
		return base.Field(l.b.Name(m.Field)), true
	case ast.ExprIndex:
		ix, _ := l.b.Exprs.Index(id)
		base := l.autoDeref(l.placeOrTemp(ix.Target))
		return l.indexPlace(base, ix.Index), true
	case ast.ExprUnary:
		u, _ := l.b.Exprs.Unary(id)
		if u.Op == ast.ExprUnaryDeref {
			return l.placeOrTemp(u.Operand).Deref(), true
		}
	}
	return Place{}, false
}

func (l *funcLowerer) autoDeref(p Place) Place {
	if p.IsLocal() && l.localKind(p.Local).IsRef() {
		return p.Deref()
	}
	return p
}

// indexPlace projects base by an index expression. Integer literals become
// constant indices; anything else is evaluated and read.
func (l *funcLowerer) indexPlace(base Place, index ast.ExprID) Place {
	if lit, ok := l.b.Exprs.Literal(l.b.Exprs.Unparen(index)); ok && lit.Kind == ast.ExprLitInt {
		text := strings.ReplaceAll(l.b.Name(lit.Value), "_", "")
		text = strings.TrimRightFunc(text, unicode.IsLetter)
		if v, err := strconv.ParseInt(text, 0, 64); err == nil {
			return base.ConstIndex(v)
		}
	}
	l.lowerDiscard(index)
	return base.Index()
}

// placeOrTemp returns the place of expr, spilling rvalues into a temporary.
func (l *funcLowerer) placeOrTemp(id ast.ExprID) Place {
	if p, ok := l.lowerPlaceExpr(id); ok {
		return p
	}
	span := l.b.Exprs.Get(id).Span
	rv, kind := l.lowerRValue(id)
	tmp := l.newTemp(kind, "val", span)
	l.emitAssign(LocalPlace(tmp), rv, true, span)
	return LocalPlace(tmp)
}

// operandFor reads p: a whole Owned or unique-reference value moves, the
// rest is copied.
func (l *funcLowerer) operandFor(p Place, span source.Span) Operand {
	if p.IsLocal() && l.localKind(p.Local).MovesOnRead() {
		return Operand{Kind: OperandMove, Place: p, Span: span}
	}
	return Operand{Kind: OperandCopy, Place: p, Span: span}
}

func (l *funcLowerer) operandKind(op Operand) ValueKind {
	if op.Kind == OperandConst {
		if op.Const.Kind == ConstString {
			return KindSharedRef
		}
		return KindCopy
	}
	return l.placeKind(op.Place)
}

// placeKind is exact only for whole locals; projections are treated as Copy.
func (l *funcLowerer) placeKind(p Place) ValueKind {
	if p.IsLocal() {
		return l.localKind(p.Local)
	}
	return KindCopy
}

func (l *funcLowerer) lowerOperand(id ast.ExprID) Operand {
	id = l.b.Exprs.Unparen(id)
	e := l.b.Exprs.Get(id)
	if p, ok := l.lowerPlaceExpr(id); ok {
		return l.operandFor(p, e.Span)
	}
	rv, kind := l.lowerRValue(id)
	if rv.Kind == RValueUse {
		return rv.Use
	}
	tmp := l.newTemp(kind, "val", e.Span)
	l.emitAssign(LocalPlace(tmp), rv, true, e.Span)
	return l.operandFor(LocalPlace(tmp), e.Span)
}

func useOperand(op Operand) RValue {
	return RValue{Kind: RValueUse, Use: op}
}

func constOperand(kind ConstKind, text string, span source.Span) Operand {
	return Operand{Kind: OperandConst, Const: Const{Kind: kind, Text: text}, Span: span}
}

// lowerRValue lowers expr and reports the kind of the value it produces.
func (l *funcLowerer) lowerRValue(id ast.ExprID) (RValue, ValueKind) {
	id = l.b.Exprs.Unparen(id)
	e := l.b.Exprs.Get(id)
	if e == nil {
		return useOperand(constOperand(ConstUnit, "", source.Span{})), KindCopy
	}
	switch e.Kind {
	case ast.ExprLit:
		op, kind := l.lowerLiteral(id, e.Span)
		return useOperand(op), kind

	case ast.ExprIdent, ast.ExprSelf, ast.ExprMember, ast.ExprIndex:
		if p, ok := l.lowerPlaceExpr(id); ok {
			return useOperand(l.operandFor(p, e.Span)), l.placeKind(p)
		}
		name := "self"
		if ident, ok := l.b.Exprs.Ident(id); ok {
			name = l.b.Name(ident.Name)
		}
		if isConstructorName(name) {
			return useOperand(constOperand(ConstOpaque, name, e.Span)), KindCopy
		}
		l.reportUnresolved(name, e.Span)
		return useOperand(constOperand(ConstOpaque, name, e.Span)), KindCopy

	case ast.ExprPath:
		path, _ := l.b.Exprs.Path(id)
		return useOperand(constOperand(ConstOpaque, l.pathString(path.Segments), e.Span)), KindCopy

	case ast.ExprUnary:
		u, _ := l.b.Exprs.Unary(id)
		if u.Op == ast.ExprUnaryDeref {
			p, _ := l.lowerPlaceExpr(id)
			return useOperand(Operand{Kind: OperandCopy, Place: p, Span: e.Span}), KindCopy
		}
		op := l.lowerOperand(u.Operand)
		return RValue{Kind: RValueUnaryOp, Unary: UnaryOp{Op: u.Op, Operand: op}}, KindCopy

	case ast.ExprBinary:
		bin, _ := l.b.Exprs.Binary(id)
		left := l.lowerBinaryOperand(bin.Left, bin.Op)
		right := l.lowerBinaryOperand(bin.Right, bin.Op)
		kind := KindCopy
		if bin.Op == ast.ExprBinaryAdd && l.operandKind(left) == KindOwned {
			// String + &str consumes the left side
			kind = KindOwned
		}
		return RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: bin.Op, Left: left, Right: right}}, kind

	case ast.ExprRef:
		r, _ := l.b.Exprs.Ref(id)
		p := l.placeOrTemp(r.Operand)
		if r.Mutable {
			return RValue{Kind: RValueRef, Ref: RefRValue{Kind: BorrowUnique, Place: p, Span: e.Span}}, KindUniqueRef
		}
		return RValue{Kind: RValueRef, Ref: RefRValue{Kind: BorrowShared, Place: p, Span: e.Span}}, KindSharedRef

	case ast.ExprCall:
		return l.lowerCall(id, e.Span)
	case ast.ExprMethodCall:
		return l.lowerMethodCall(id, e.Span)
	case ast.ExprMacro:
		return l.lowerMacro(id, e.Span)

	case ast.ExprStruct:
		st, _ := l.b.Exprs.Struct(id)
		ops := make([]Operand, 0, len(st.Fields))
		for _, field := range st.Fields {
			// a nameless field is the `..base` update source
			ops = append(ops, l.lowerOperand(field.Value))
		}
		return RValue{Kind: RValueAggregate, Aggregate: AggregateRValue{Name: l.b.Name(st.Name), Ops: ops}}, KindOwned

	case ast.ExprTuple:
		tup, _ := l.b.Exprs.Tuple(id)
		if len(tup.Elems) == 0 {
			return useOperand(constOperand(ConstUnit, "", e.Span)), KindCopy
		}
		kind := KindCopy
		ops := make([]Operand, 0, len(tup.Elems))
		for _, elem := range tup.Elems {
			op := l.lowerOperand(elem)
			if l.operandKind(op) != KindCopy {
				kind = KindOwned
			}
			ops = append(ops, op)
		}
		return RValue{Kind: RValueAggregate, Aggregate: AggregateRValue{Name: "tuple", Ops: ops}}, kind

	case ast.ExprRange:
		rg, _ := l.b.Exprs.Range(id)
		var ops []Operand
		if rg.Lo.IsValid() {
			ops = append(ops, l.lowerOperand(rg.Lo))
		}
		if rg.Hi.IsValid() {
			ops = append(ops, l.lowerOperand(rg.Hi))
		}
		return RValue{Kind: RValueAggregate, Aggregate: AggregateRValue{Name: "range", Ops: ops}}, KindCopy
	}
	return useOperand(constOperand(ConstOpaque, "", e.Span)), KindCopy
}

// lowerBinaryOperand reads an operand of op. Comparisons take their operands
// by reference and never move them.
func (l *funcLowerer) lowerBinaryOperand(id ast.ExprID, op ast.ExprBinaryOp) Operand {
	if op.IsComparison() {
		if p, ok := l.lowerPlaceExpr(id); ok {
			return Operand{Kind: OperandCopy, Place: p, Span: l.b.Exprs.Get(id).Span}
		}
	}
	return l.lowerOperand(id)
}

func (l *funcLowerer) lowerLiteral(id ast.ExprID, span source.Span) (Operand, ValueKind) {
	lit, _ := l.b.Exprs.Literal(id)
	text := l.b.Name(lit.Value)
	switch lit.Kind {
	case ast.ExprLitInt:
		return constOperand(ConstInt, text, span), KindCopy
	case ast.ExprLitFloat:
		return constOperand(ConstFloat, text, span), KindCopy
	case ast.ExprLitString:
		return constOperand(ConstString, text, span), KindSharedRef
	case ast.ExprLitChar:
		return constOperand(ConstChar, text, span), KindCopy
	default:
		return constOperand(ConstBool, text, span), KindCopy
	}
}

func (l *funcLowerer) pathString(segs []source.StringID) string {
	parts := make([]string, len(segs))
	for i, seg := range segs {
		parts[i] = l.b.Name(seg)
	}
	return strings.Join(parts, "::")
}

// isConstructorName reports names like `None` that resolve to enum
// variants or unit structs rather than locals.
func isConstructorName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func (l *funcLowerer) reportUnresolved(name string, span source.Span) {
	l.report(diag.SemaUnresolvedSymbol, span, fmt.Sprintf("cannot find value `%s` in this scope", name))
}
