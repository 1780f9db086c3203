package mir

import (
	"fmt"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

func (l *funcLowerer) lowerCall(id ast.ExprID, span source.Span) (RValue, ValueKind) {
	call, _ := l.b.Exprs.Call(id)
	target := l.b.Exprs.Unparen(call.Target)
	te := l.b.Exprs.Get(target)

	callee := "<expr>"
	var sig *fnSig
	switch te.Kind {
	case ast.ExprIdent:
		ident, _ := l.b.Exprs.Ident(target)
		callee = l.b.Name(ident.Name)
		if local, ok := l.lookup(callee); ok {
			// calling a closure or fn pointer held in a local
			l.emitRead(LocalPlace(local), te.Span)
		} else {
			sig = l.sigs.free[callee]
		}
	case ast.ExprPath:
		path, _ := l.b.Exprs.Path(target)
		callee = l.pathString(path.Segments)
		if n := len(path.Segments); n >= 2 {
			sig = l.sigs.assoc[l.b.Name(path.Segments[n-2])+"::"+l.b.Name(path.Segments[n-1])]
		}
	default:
		l.lowerDiscard(target)
	}

	args := l.lowerArgs(call.Args)
	if sig == nil {
		return RValue{Kind: RValueCall, Call: CallRValue{Callee: callee, Args: args, Sig: undeclaredSig(len(args))}}, KindOwned
	}
	if len(args) != sig.params {
		l.reportArity(callee, sig.params, len(args), span)
	}
	return RValue{Kind: RValueCall, Call: CallRValue{
		Callee: callee,
		Args:   args,
		Sig:    CallSig{Declared: true, Ties: fitTies(sig.ties, len(args))},
	}}, sig.result
}

// lowerArgs evaluates call arguments left to right. Passing a unique
// reference local reborrows it instead of moving it.
func (l *funcLowerer) lowerArgs(args []ast.ExprID) []Operand {
	ops := make([]Operand, 0, len(args))
	for _, arg := range args {
		op := l.lowerOperand(arg)
		if op.Kind == OperandMove && op.Place.IsLocal() {
			if local := l.f.Local(op.Place.Local); local != nil && local.Kind == KindUniqueRef && !local.IsTemp() {
				op.Kind = OperandCopy
			}
		}
		ops = append(ops, op)
	}
	return ops
}

// lowerMethodCall lowers recv.m(args). Arguments are evaluated before the
// receiver of a place is borrowed, so `v.push(v.len())` is accepted.
func (l *funcLowerer) lowerMethodCall(id ast.ExprID, span source.Span) (RValue, ValueKind) {
	mc, _ := l.b.Exprs.MethodCall(id)
	name := l.b.Name(mc.Method)
	recvSpan := l.b.Exprs.Get(mc.Receiver).Span

	info, sig := l.resolveMethod(name)

	recv, isPlace := l.lowerPlaceExpr(mc.Receiver)
	if !isPlace {
		recv = l.placeOrTemp(mc.Receiver)
	}
	args := l.lowerArgs(mc.Args)
	var recvOp Operand
	if isPlace {
		recvOp = l.receiverOperand(recv, info.recv, recvSpan, span)
	} else {
		// nothing else can observe a temporary receiver, so it is passed
		// by value whatever the method's self mode
		recvOp = l.operandFor(recv, recvSpan)
	}

	ops := make([]Operand, 0, len(args)+1)
	ops = append(ops, recvOp)
	ops = append(ops, args...)

	callee := name
	if sig != nil {
		callee = sig.owner + "::" + name
		if len(args) != sig.params {
			l.reportArity(callee, sig.params, len(args), span)
		}
		return RValue{Kind: RValueCall, Call: CallRValue{
			Callee: callee,
			Args:   ops,
			Sig:    CallSig{Declared: true, Ties: fitTies(sig.ties, len(ops))},
		}}, sig.result
	}

	ties := make([]bool, len(ops))
	ties[0] = info.tiesRecv
	result := info.result
	if info.resultFromRecv {
		// adapters such as zip and chain carry their arguments along too
		for i := range ties {
			ties[i] = true
		}
		result = l.operandKind(recvOp)
	}
	return RValue{Kind: RValueCall, Call: CallRValue{Callee: callee, Args: ops, Sig: CallSig{Ties: ties}}}, result
}

// resolveMethod prefers a method declared in the file over the builtin
// table. A declared method yields its signature.
func (l *funcLowerer) resolveMethod(name string) (methodInfo, *fnSig) {
	if sig, ok := l.sigs.methods[name]; ok {
		info := methodInfo{recv: recvShared, result: sig.result}
		switch sig.self {
		case ast.SelfRefMut:
			info.recv = recvUnique
		case ast.SelfValue, ast.SelfMutValue:
			info.recv = recvValue
		}
		return info, sig
	}
	if info, ok := builtinMethods[name]; ok {
		return info, nil
	}
	return unknownMethod, nil
}

// receiverOperand passes recv in the given mode. Borrowing a reference
// local reborrows its target. The borrow is attributed to the whole call.
func (l *funcLowerer) receiverOperand(recv Place, mode recvMode, recvSpan, span source.Span) Operand {
	if mode == recvValue {
		return l.operandFor(recv, recvSpan)
	}
	if recv.IsLocal() && l.localKind(recv.Local).IsRef() {
		recv = recv.Deref()
	}
	borrow, kind := BorrowShared, KindSharedRef
	if mode == recvUnique {
		borrow, kind = BorrowUnique, KindUniqueRef
	}
	tmp := l.newTemp(kind, "recv", span)
	l.emitAssign(LocalPlace(tmp), RValue{Kind: RValueRef, Ref: RefRValue{Kind: borrow, Place: recv, Span: span}}, true, span)
	return Operand{Kind: OperandMove, Place: LocalPlace(tmp), Span: span}
}

// fitTies pads or truncates declared ties to the actual argument count.
func fitTies(declared []bool, n int) []bool {
	ties := make([]bool, n)
	copy(ties, declared)
	return ties
}

func (l *funcLowerer) reportArity(callee string, want, got int, span source.Span) {
	l.report(diag.SemaArityMismatch, span,
		fmt.Sprintf("`%s` takes %d argument(s) but %d were supplied", callee, want, got))
}

// divergingMacros never return.
var divergingMacros = map[string]bool{
	"panic":         true,
	"unreachable":   true,
	"todo":          true,
	"unimplemented": true,
}

// lowerMacro models the few macros whose ownership effects matter. Others,
// println! included, only read their arguments.
func (l *funcLowerer) lowerMacro(id ast.ExprID, span source.Span) (RValue, ValueKind) {
	m, _ := l.b.Exprs.Macro(id)
	name := l.b.Name(m.Name)
	switch name {
	case "vec":
		ops := make([]Operand, 0, len(m.Args))
		for _, arg := range m.Args {
			ops = append(ops, l.lowerOperand(arg))
		}
		return RValue{Kind: RValueAggregate, Aggregate: AggregateRValue{Name: "vec!", Ops: ops}}, KindOwned
	case "format":
		l.readArgs(m.Args)
		return useOperand(constOperand(ConstOpaque, "format!", span)), KindOwned
	}
	l.readArgs(m.Args)
	if divergingMacros[name] {
		l.setTerm(&Terminator{Kind: TermUnreachable, Span: span})
		l.startDeadBlock()
	}
	return useOperand(constOperand(ConstUnit, "", span)), KindCopy
}

func (l *funcLowerer) readArgs(args []ast.ExprID) {
	for _, arg := range args {
		l.lowerDiscard(arg)
	}
}
