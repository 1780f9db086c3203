package mir

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/ast"
	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// LowerOptions configures AST to MIR lowering.
type LowerOptions struct {
	Reporter diag.Reporter
}

// LowerFile builds the control-flow graph of every function in file. Name
// resolution problems are reported as diagnostics; the returned error is
// non-nil only when the produced MIR is malformed.
func LowerFile(b *ast.Builder, file ast.FileID, opts LowerOptions) (*Module, error) {
	out := &Module{}
	f := b.Files.Get(file)
	if f == nil {
		return out, nil
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	sigs := collectSignatures(b, f.Items)

	var errs []error
	for _, itemID := range f.Items {
		fn, ok := b.Items.Fn(itemID)
		if !ok || !fn.Body.IsValid() {
			continue
		}
		item := b.Items.Get(itemID)
		fl := &funcLowerer{
			b:        b,
			sigs:     sigs,
			reporter: opts.Reporter,
			nextTemp: 1,
		}
		mf := fl.lowerFunc(fn, item.Span)
		SimplifyCFG(mf)
		if err := Validate(mf); err != nil {
			errs = append(errs, err)
			continue
		}
		out.Funcs = append(out.Funcs, mf)
	}
	return out, errors.Join(errs...)
}

type loopCtx struct {
	breakTarget    BlockID
	continueTarget BlockID
	// scopes above this depth die when leaving the loop body
	depth int
}

type scope struct {
	locals []LocalID
	names  map[string]LocalID
}

type funcLowerer struct {
	b        *ast.Builder
	sigs     *signatures
	reporter diag.Reporter

	f        *Func
	cur      BlockID
	scopes   []scope
	loops    []loopCtx
	nextTemp int
	// deferred holds bindings declared without type or initializer; the
	// first whole assignment decides their kind.
	deferred map[LocalID]bool
}

func (l *funcLowerer) lowerFunc(fn *ast.FnItem, span source.Span) *Func {
	name := l.b.Name(fn.Name)
	if fn.Owner != source.NoStringID {
		name = l.b.Name(fn.Owner) + "::" + name
	}
	l.f = &Func{Name: name, Span: span}

	resultKind := KindCopy
	if fn.Result.IsValid() {
		resultKind = l.kindFromType(fn.Result)
	}
	l.addLocal(Local{Name: "_0", Kind: resultKind, Flags: LocalReturn | LocalMutable, Span: span})

	entry := l.newBlock()
	l.f.Entry = entry
	l.cur = entry

	// function scope holds the parameters
	l.pushScope()
	if fn.Self != ast.SelfNone {
		l.declare("self", l.selfKind(fn.Self), fn.Self == ast.SelfMutValue, LocalParam, fn.SelfSpan, fn.SelfSpan)
		l.f.ParamCount++
	}
	for _, p := range fn.Params {
		pname := l.b.Name(p.Name)
		if pname == "" {
			pname = "_"
		}
		l.declare(pname, l.kindFromType(p.Type), p.Mutable, LocalParam, p.Span, p.Span)
		l.f.ParamCount++
	}

	var dest *Place
	if fn.Result.IsValid() {
		ret := LocalPlace(ReturnLocal)
		dest = &ret
	}
	l.lowerBlockStmt(fn.Body, dest)

	if !l.curBlock().Terminated() {
		closeSpan := l.closeSpan(fn.Body)
		l.emitStorageDeadFrom(0, closeSpan)
		l.setTerm(&Terminator{Kind: TermReturn, Span: closeSpan})
	}
	l.scopes = l.scopes[:0]

	for i := range l.f.Blocks {
		if l.f.Blocks[i].Term.Kind == TermNone {
			l.f.Blocks[i].Term.Kind = TermUnreachable
		}
	}
	return l.f
}

func (l *funcLowerer) closeSpan(body ast.StmtID) source.Span {
	if blk, ok := l.b.Stmts.Block(body); ok {
		return blk.Close
	}
	return l.f.Span.ZeroideToEnd()
}

func (l *funcLowerer) curBlock() *Block {
	return l.f.Block(l.cur)
}

func (l *funcLowerer) newBlock() BlockID {
	raw, err := safecast.Conv[int32](len(l.f.Blocks))
	if err != nil {
		panic(fmt.Errorf("mir: block id overflow: %w", err))
	}
	id := BlockID(raw)
	l.f.Blocks = append(l.f.Blocks, Block{ID: id, Term: Terminator{Kind: TermNone}})
	return id
}

func (l *funcLowerer) startBlock(id BlockID) {
	l.cur = id
}

// startDeadBlock continues lowering in a fresh block nothing jumps to;
// SimplifyCFG drops it.
func (l *funcLowerer) startDeadBlock() {
	l.startBlock(l.newBlock())
}

func (l *funcLowerer) setTerm(t *Terminator) {
	b := l.curBlock()
	if b == nil || b.Terminated() || t == nil {
		return
	}
	b.Term = *t
}

func (l *funcLowerer) gotoBlock(target BlockID, span source.Span) {
	l.setTerm(&Terminator{Kind: TermGoto, Span: span, Goto: GotoTerm{Target: target}})
}

func (l *funcLowerer) emit(ins *Instr) {
	b := l.curBlock()
	if b == nil || b.Terminated() || ins == nil {
		return
	}
	b.Instrs = append(b.Instrs, *ins)
}

func (l *funcLowerer) emitAssign(dst Place, rv RValue, decl bool, span source.Span) {
	l.emit(&Instr{Kind: InstrAssign, Span: span, Assign: AssignInstr{Dst: dst, Src: rv, Decl: decl}})
}

func (l *funcLowerer) emitRead(p Place, span source.Span) {
	l.emit(&Instr{Kind: InstrRead, Span: span, Read: ReadInstr{Place: p}})
}

func (l *funcLowerer) addLocal(local Local) LocalID {
	raw, err := safecast.Conv[int32](len(l.f.Locals))
	if err != nil {
		panic(fmt.Errorf("mir: local id overflow: %w", err))
	}
	l.f.Locals = append(l.f.Locals, local)
	return LocalID(raw)
}

func (l *funcLowerer) pushScope() {
	l.scopes = append(l.scopes, scope{names: make(map[string]LocalID)})
}

// popScope kills the scope's locals in reverse declaration order.
func (l *funcLowerer) popScope(span source.Span) {
	top := l.scopes[len(l.scopes)-1]
	l.emitStorageDead(top.locals, span)
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *funcLowerer) emitStorageDead(locals []LocalID, span source.Span) {
	for i := len(locals) - 1; i >= 0; i-- {
		l.emit(&Instr{Kind: InstrStorageDead, Span: span, StorageDead: StorageDeadInstr{Local: locals[i]}})
	}
}

// emitStorageDeadFrom kills every local of scopes at depth >= depth without
// popping them; used by break, continue and return.
func (l *funcLowerer) emitStorageDeadFrom(depth int, span source.Span) {
	for i := len(l.scopes) - 1; i >= depth; i-- {
		l.emitStorageDead(l.scopes[i].locals, span)
	}
}

func (l *funcLowerer) declare(name string, kind ValueKind, mutable bool, flags LocalFlags, span, decl source.Span) LocalID {
	if mutable {
		flags |= LocalMutable
	}
	id := l.addLocal(Local{Name: name, Kind: kind, Flags: flags, Span: span, Decl: decl})
	top := &l.scopes[len(l.scopes)-1]
	top.locals = append(top.locals, id)
	if name != "_" {
		top.names[name] = id
	}
	return id
}

// newTemp creates a compiler temporary owned by the innermost scope.
func (l *funcLowerer) newTemp(kind ValueKind, hint string, span source.Span) LocalID {
	name := fmt.Sprintf("tmp_%s%d", hint, l.nextTemp)
	l.nextTemp++
	return l.declare(name, kind, true, LocalTemp, span, span)
}

func (l *funcLowerer) lookup(name string) (LocalID, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if id, ok := l.scopes[i].names[name]; ok {
			return id, true
		}
	}
	return NoLocalID, false
}

func (l *funcLowerer) localKind(id LocalID) ValueKind {
	if local := l.f.Local(id); local != nil {
		return local.Kind
	}
	return KindCopy
}

func (l *funcLowerer) selfKind(k ast.SelfKind) ValueKind {
	switch k {
	case ast.SelfRef:
		return KindSharedRef
	case ast.SelfRefMut:
		return KindUniqueRef
	default:
		return KindOwned
	}
}

func (l *funcLowerer) report(code diag.Code, span source.Span, msg string) {
	diag.ReportError(l.reporter, code, span, msg).Emit()
}
