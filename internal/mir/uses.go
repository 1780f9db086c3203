package mir

// VisitUses calls use for every local read by ins. A write through a
// projection reads its root: `*r = x` needs r and `s.f = x` needs s.
func VisitUses(ins *Instr, use func(LocalID)) {
	switch ins.Kind {
	case InstrAssign:
		visitRValueUses(&ins.Assign.Src, use)
		if !ins.Assign.Dst.IsLocal() {
			use(ins.Assign.Dst.Local)
		}
	case InstrRead:
		use(ins.Read.Place.Local)
	}
}

// VisitDefs calls def for every local whose whole value ins overwrites or kills.
func VisitDefs(ins *Instr, def func(LocalID)) {
	switch ins.Kind {
	case InstrAssign:
		if ins.Assign.Dst.IsLocal() {
			def(ins.Assign.Dst.Local)
		}
	case InstrStorageDead:
		def(ins.StorageDead.Local)
	}
}

// VisitTermUses calls use for every local read by the terminator.
func VisitTermUses(t *Terminator, use func(LocalID)) {
	switch t.Kind {
	case TermIf:
		visitOperandUses(&t.If.Cond, use)
	case TermReturn:
		use(ReturnLocal)
	}
}

func visitOperandUses(op *Operand, use func(LocalID)) {
	switch op.Kind {
	case OperandCopy, OperandMove:
		use(op.Place.Local)
	}
}

func visitRValueUses(rv *RValue, use func(LocalID)) {
	switch rv.Kind {
	case RValueRef:
		use(rv.Ref.Place.Local)
	case RValueIterNext:
		use(rv.IterNext.Iter.Local)
	default:
		for _, op := range rv.Operands() {
			visitOperandUses(&op, use)
		}
	}
}
