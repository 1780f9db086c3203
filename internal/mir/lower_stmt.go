package mir

import (
	"fmt"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// lowerBlockStmt lowers a `{ ... }` block in its own scope. When dest is
// set, a trailing expression or `if` writes its value there.
func (l *funcLowerer) lowerBlockStmt(id ast.StmtID, dest *Place) {
	blk, ok := l.b.Stmts.Block(id)
	if !ok {
		l.lowerStmt(id, dest)
		return
	}
	l.pushScope()
	for i, stmtID := range blk.Stmts {
		var tail *Place
		if i == len(blk.Stmts)-1 {
			tail = dest
		}
		l.lowerStmt(stmtID, tail)
	}
	l.popScope(blk.Close)
}

func (l *funcLowerer) lowerStmt(id ast.StmtID, dest *Place) {
	st := l.b.Stmts.Get(id)
	if st == nil {
		return
	}
	switch st.Kind {
	case ast.StmtBlock:
		l.lowerBlockStmt(id, dest)
	case ast.StmtLet:
		l.lowerLet(id, st.Span)
	case ast.StmtExpr:
		es, _ := l.b.Stmts.Expr(id)
		if dest != nil && !es.HasSemi {
			l.lowerInto(*dest, es.Expr, false)
			return
		}
		l.lowerDiscard(es.Expr)
	case ast.StmtAssign:
		l.lowerAssign(id, st.Span)
	case ast.StmtIf:
		l.lowerIf(id, dest)
	case ast.StmtWhile:
		l.lowerWhile(id, st.Span)
	case ast.StmtLoop:
		l.lowerLoop(id, st.Span)
	case ast.StmtFor:
		l.lowerFor(id, st.Span)
	case ast.StmtBreak, ast.StmtContinue:
		l.lowerJump(st.Kind == ast.StmtBreak, st.Span)
	case ast.StmtReturn:
		rs, _ := l.b.Stmts.Return(id)
		if rs.Value.IsValid() {
			l.lowerInto(LocalPlace(ReturnLocal), rs.Value, false)
		}
		l.emitStorageDeadFrom(0, st.Span)
		l.setTerm(&Terminator{Kind: TermReturn, Span: st.Span})
		l.startDeadBlock()
	}
}

func (l *funcLowerer) lowerLet(id ast.StmtID, span source.Span) {
	let, _ := l.b.Stmts.Let(id)
	name := "_"
	if let.Name != source.NoStringID {
		name = l.b.Name(let.Name)
	}
	if name == "_" && let.Value.IsValid() {
		// `let _ = e` evaluates e without binding it
		l.lowerDiscard(let.Value)
		return
	}
	if !let.Value.IsValid() {
		kind := KindOwned
		if let.Type.IsValid() {
			kind = l.kindFromType(let.Type)
		}
		local := l.declare(name, kind, let.Mutable, 0, span, let.NameSpan)
		if !let.Type.IsValid() {
			if l.deferred == nil {
				l.deferred = make(map[LocalID]bool)
			}
			l.deferred[local] = true
		}
		return
	}

	// the initializer is resolved before the new binding shadows anything
	rv, kind := l.lowerRValue(let.Value)
	if let.Type.IsValid() {
		kind = l.kindFromType(let.Type)
	}
	local := l.declare(name, kind, let.Mutable, 0, span, let.NameSpan)
	l.emitAssign(LocalPlace(local), rv, true, span)
}

var compoundOps = map[ast.AssignOp]ast.ExprBinaryOp{
	ast.AssignAdd: ast.ExprBinaryAdd,
	ast.AssignSub: ast.ExprBinarySub,
	ast.AssignMul: ast.ExprBinaryMul,
	ast.AssignDiv: ast.ExprBinaryDiv,
	ast.AssignRem: ast.ExprBinaryMod,
}

func (l *funcLowerer) lowerAssign(id ast.StmtID, span source.Span) {
	as, _ := l.b.Stmts.Assign(id)

	var rv RValue
	var rhs Operand
	var kind ValueKind
	compound := as.Op != ast.AssignPlain
	if compound {
		rhs = l.lowerOperand(as.Value)
	} else {
		rv, kind = l.lowerRValue(as.Value)
	}

	dst, ok := l.lowerPlaceExpr(as.Target)
	if !ok {
		target := l.b.Exprs.Unparen(as.Target)
		if ident, isIdent := l.b.Exprs.Ident(target); isIdent {
			l.reportUnresolved(l.b.Name(ident.Name), l.b.Exprs.Get(target).Span)
		} else {
			l.report(diag.SynUnexpectedToken, l.b.Exprs.Get(target).Span, "invalid left-hand side of assignment")
		}
		return
	}

	if !compound && len(dst.Proj) == 0 && l.deferred[dst.Local] {
		l.f.Locals[dst.Local].Kind = kind
		delete(l.deferred, dst.Local)
	}

	if compound {
		rv = RValue{Kind: RValueBinaryOp, Binary: BinaryOp{
			Op:    compoundOps[as.Op],
			Left:  Operand{Kind: OperandCopy, Place: dst, Span: l.b.Exprs.Get(as.Target).Span},
			Right: rhs,
		}}
	}
	l.emitAssign(dst, rv, false, span)
}

func (l *funcLowerer) lowerIf(id ast.StmtID, dest *Place) {
	is, _ := l.b.Stmts.If(id)
	st := l.b.Stmts.Get(id)

	cond := l.lowerOperand(is.Cond)
	thenBlock := l.newBlock()
	joinBlock := l.newBlock()
	elseBlock := joinBlock
	if is.Else.IsValid() {
		elseBlock = l.newBlock()
	}
	l.setTerm(&Terminator{Kind: TermIf, Span: st.Span, If: IfTerm{Cond: cond, Then: thenBlock, Else: elseBlock}})

	l.startBlock(thenBlock)
	l.lowerStmt(is.Then, dest)
	l.gotoBlock(joinBlock, st.Span)

	if is.Else.IsValid() {
		l.startBlock(elseBlock)
		l.lowerStmt(is.Else, dest)
		l.gotoBlock(joinBlock, st.Span)
	}
	l.startBlock(joinBlock)
}

func (l *funcLowerer) lowerWhile(id ast.StmtID, span source.Span) {
	ws, _ := l.b.Stmts.While(id)
	head := l.newBlock()
	body := l.newBlock()
	exit := l.newBlock()

	l.gotoBlock(head, span)
	l.startBlock(head)
	cond := l.lowerOperand(ws.Cond)
	l.setTerm(&Terminator{Kind: TermIf, Span: span, If: IfTerm{Cond: cond, Then: body, Else: exit}})

	l.startBlock(body)
	l.loops = append(l.loops, loopCtx{breakTarget: exit, continueTarget: head, depth: len(l.scopes)})
	l.lowerStmt(ws.Body, nil)
	l.loops = l.loops[:len(l.loops)-1]
	l.gotoBlock(head, span)

	l.startBlock(exit)
}

func (l *funcLowerer) lowerLoop(id ast.StmtID, span source.Span) {
	ls, _ := l.b.Stmts.Loop(id)
	body := l.newBlock()
	exit := l.newBlock()

	l.gotoBlock(body, span)
	l.startBlock(body)
	l.loops = append(l.loops, loopCtx{breakTarget: exit, continueTarget: body, depth: len(l.scopes)})
	l.lowerStmt(ls.Body, nil)
	l.loops = l.loops[:len(l.loops)-1]
	l.gotoBlock(body, span)

	// without a break the exit block stays unreachable
	l.startBlock(exit)
}

// lowerFor lowers `for x in e { body }` to
//
//	iter = e
//	head: x = iter_next iter; if opaque then body else exit
//	body: ...; storage_dead x; goto head
//	exit: storage_dead iter
func (l *funcLowerer) lowerFor(id ast.StmtID, span source.Span) {
	fs, _ := l.b.Stmts.For(id)
	iterSpan := l.b.Exprs.Get(fs.Iter).Span

	l.pushScope()
	iterRV, iterKind := l.lowerRValue(fs.Iter)
	iter := l.newTemp(iterKind, "iter", iterSpan)
	l.emitAssign(LocalPlace(iter), iterRV, true, iterSpan)

	head := l.newBlock()
	body := l.newBlock()
	exit := l.newBlock()
	l.gotoBlock(head, span)

	l.startBlock(head)
	l.pushScope()
	name := "_"
	if fs.Name != source.NoStringID {
		name = l.b.Name(fs.Name)
	}
	binding := l.declare(name, elementKind(iterKind), fs.Mutable, 0, fs.NameSpan, fs.NameSpan)
	l.emitAssign(LocalPlace(binding), RValue{Kind: RValueIterNext, IterNext: IterNextRValue{Iter: LocalPlace(iter)}}, true, fs.NameSpan)
	hasNext := Operand{Kind: OperandConst, Const: Const{Kind: ConstOpaque, Text: "has_next"}, Span: iterSpan}
	l.setTerm(&Terminator{Kind: TermIf, Span: span, If: IfTerm{Cond: hasNext, Then: body, Else: exit}})

	l.startBlock(body)
	l.loops = append(l.loops, loopCtx{breakTarget: exit, continueTarget: head, depth: len(l.scopes) - 1})
	l.lowerStmt(fs.Body, nil)
	l.loops = l.loops[:len(l.loops)-1]
	l.popScope(l.closeSpan(fs.Body))
	l.gotoBlock(head, span)

	l.startBlock(exit)
	l.popScope(span.ZeroideToEnd())
}

// elementKind is the kind of the values a loop over an iterator of the
// given kind binds.
func elementKind(iter ValueKind) ValueKind {
	return iter
}

func (l *funcLowerer) lowerJump(isBreak bool, span source.Span) {
	if len(l.loops) == 0 {
		kw := "continue"
		if isBreak {
			kw = "break"
		}
		l.report(diag.SemaBreakOutsideLoop, span, fmt.Sprintf("`%s` outside of a loop", kw))
		return
	}
	lp := l.loops[len(l.loops)-1]
	l.emitStorageDeadFrom(lp.depth, span)
	target := lp.continueTarget
	if isBreak {
		target = lp.breakTarget
	}
	l.gotoBlock(target, span)
	l.startDeadBlock()
}

// lowerInto evaluates expr straight into dst.
func (l *funcLowerer) lowerInto(dst Place, expr ast.ExprID, decl bool) {
	rv, _ := l.lowerRValue(expr)
	l.emitAssign(dst, rv, decl, l.b.Exprs.Get(expr).Span)
}

// lowerDiscard evaluates expr for its effects. A place is only read.
func (l *funcLowerer) lowerDiscard(expr ast.ExprID) {
	e := l.b.Exprs.Get(l.b.Exprs.Unparen(expr))
	if e == nil {
		return
	}
	if p, ok := l.lowerPlaceExpr(expr); ok {
		l.emitRead(p, e.Span)
		return
	}
	rv, kind := l.lowerRValue(expr)
	if rv.Kind == RValueUse && rv.Use.Kind == OperandConst {
		return
	}
	tmp := l.newTemp(kind, "val", e.Span)
	l.emitAssign(LocalPlace(tmp), rv, true, e.Span)
}
