package borrowck

import (
	"borrowck/internal/mir"
	"borrowck/internal/source"
)

type accessKind uint8

const (
	accessRead accessKind = iota
	accessMove
	accessWrite
	accessBorrowShared
	accessBorrowUnique
	accessStorageDead
)

// access is one effect an instruction has on a place.
type access struct {
	kind  accessKind
	place mir.Place
	span  source.Span
	// decl marks the initializing write of a binding.
	decl bool
}

// walkAccesses reports the accesses of ins in evaluation order: the
// operands of the rvalue first, then the write of the destination.
// The move tracker and the checker both replay this order.
func walkAccesses(ins *mir.Instr, visit func(access)) {
	switch ins.Kind {
	case mir.InstrAssign:
		as := &ins.Assign
		switch as.Src.Kind {
		case mir.RValueRef:
			kind := accessBorrowShared
			if as.Src.Ref.Kind == mir.BorrowUnique {
				kind = accessBorrowUnique
			}
			visit(access{kind: kind, place: as.Src.Ref.Place, span: spanOr(as.Src.Ref.Span, ins.Span)})
		case mir.RValueIterNext:
			visit(access{kind: accessRead, place: as.Src.IterNext.Iter, span: ins.Span})
		default:
			for _, op := range as.Src.Operands() {
				visitOperand(op, ins.Span, visit)
			}
		}
		visit(access{kind: accessWrite, place: as.Dst, span: ins.Span, decl: as.Decl})
	case mir.InstrRead:
		visit(access{kind: accessRead, place: ins.Read.Place, span: ins.Span})
	case mir.InstrStorageDead:
		visit(access{kind: accessStorageDead, place: mir.LocalPlace(ins.StorageDead.Local), span: ins.Span})
	}
}

// walkTermAccesses reports the condition read of an `if`. Return reads the
// return slot, which is not checked.
func walkTermAccesses(t *mir.Terminator, visit func(access)) {
	if t.Kind == mir.TermIf {
		visitOperand(t.If.Cond, t.Span, visit)
	}
}

func visitOperand(op mir.Operand, fallback source.Span, visit func(access)) {
	span := spanOr(op.Span, fallback)
	switch op.Kind {
	case mir.OperandCopy:
		visit(access{kind: accessRead, place: op.Place, span: span})
	case mir.OperandMove:
		visit(access{kind: accessMove, place: op.Place, span: span})
	}
}

func walkPoint(f *mir.Func, p mir.Point, visit func(access)) {
	if ins := f.InstrAt(p); ins != nil {
		walkAccesses(ins, visit)
		return
	}
	if bb := f.Block(p.Block); bb != nil {
		walkTermAccesses(&bb.Term, visit)
	}
}

func spanOr(sp, fallback source.Span) source.Span {
	if sp == (source.Span{}) {
		return fallback
	}
	return sp
}
