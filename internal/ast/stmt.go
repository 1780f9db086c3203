package ast

import (
	"borrowck/internal/source"
)

type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtLet
	StmtExpr
	StmtAssign
	StmtIf
	StmtWhile
	StmtLoop
	StmtFor
	StmtBreak
	StmtContinue
	StmtReturn
)

type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

type BlockStmt struct {
	Stmts []StmtID
	Close source.Span // the closing brace, where scoped bindings die
}

type LetStmt struct {
	Name     source.StringID // NoStringID for `_`
	NameSpan source.Span
	Mutable  bool
	Type     TypeID
	Value    ExprID
}

type ExprStmt struct {
	Expr    ExprID
	HasSemi bool
}

type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
)

type AssignStmt struct {
	Op     AssignOp
	Target ExprID
	Value  ExprID
}

type IfStmt struct {
	Cond ExprID
	Then StmtID // StmtBlock
	Else StmtID // StmtBlock, StmtIf, or NoStmtID
}

type WhileStmt struct {
	Cond ExprID
	Body StmtID
}

type LoopStmt struct {
	Body StmtID
}

type ForStmt struct {
	Name     source.StringID
	NameSpan source.Span
	Mutable  bool
	Iter     ExprID
	Body     StmtID
}

type ReturnStmt struct {
	Value ExprID
}

type Stmts struct {
	Arena   *Arena[Stmt]
	Blocks  *Arena[BlockStmt]
	Lets    *Arena[LetStmt]
	Exprs   *Arena[ExprStmt]
	Assigns *Arena[AssignStmt]
	Ifs     *Arena[IfStmt]
	Whiles  *Arena[WhileStmt]
	Loops   *Arena[LoopStmt]
	Fors    *Arena[ForStmt]
	Returns *Arena[ReturnStmt]
}

func NewStmts(capHint uint) *Stmts {
	small := capHint/8 + 1
	return &Stmts{
		Arena:   NewArena[Stmt](capHint),
		Blocks:  NewArena[BlockStmt](capHint / 4),
		Lets:    NewArena[LetStmt](capHint / 4),
		Exprs:   NewArena[ExprStmt](capHint / 4),
		Assigns: NewArena[AssignStmt](capHint / 4),
		Ifs:     NewArena[IfStmt](small),
		Whiles:  NewArena[WhileStmt](small),
		Loops:   NewArena[LoopStmt](small),
		Fors:    NewArena[ForStmt](small),
		Returns: NewArena[ReturnStmt](small),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload uint32) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: kind, Span: span, Payload: PayloadID(payload)}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) payload(id StmtID, kind StmtKind) (uint32, bool) {
	st := s.Get(id)
	if st == nil || st.Kind != kind {
		return 0, false
	}
	return uint32(st.Payload), true
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID, closeBrace source.Span) StmtID {
	return s.new(StmtBlock, span, s.Blocks.Allocate(BlockStmt{Stmts: stmts, Close: closeBrace}))
}

func (s *Stmts) Block(id StmtID) (*BlockStmt, bool) {
	p, ok := s.payload(id, StmtBlock)
	if !ok {
		return nil, false
	}
	return s.Blocks.Get(p), true
}

func (s *Stmts) NewLet(span source.Span, let LetStmt) StmtID {
	return s.new(StmtLet, span, s.Lets.Allocate(let))
}

func (s *Stmts) Let(id StmtID) (*LetStmt, bool) {
	p, ok := s.payload(id, StmtLet)
	if !ok {
		return nil, false
	}
	return s.Lets.Get(p), true
}

func (s *Stmts) NewExpr(span source.Span, expr ExprID, hasSemi bool) StmtID {
	return s.new(StmtExpr, span, s.Exprs.Allocate(ExprStmt{Expr: expr, HasSemi: hasSemi}))
}

func (s *Stmts) Expr(id StmtID) (*ExprStmt, bool) {
	p, ok := s.payload(id, StmtExpr)
	if !ok {
		return nil, false
	}
	return s.Exprs.Get(p), true
}

func (s *Stmts) NewAssign(span source.Span, op AssignOp, target, value ExprID) StmtID {
	return s.new(StmtAssign, span, s.Assigns.Allocate(AssignStmt{Op: op, Target: target, Value: value}))
}

func (s *Stmts) Assign(id StmtID) (*AssignStmt, bool) {
	p, ok := s.payload(id, StmtAssign)
	if !ok {
		return nil, false
	}
	return s.Assigns.Get(p), true
}

func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	return s.new(StmtIf, span, s.Ifs.Allocate(IfStmt{Cond: cond, Then: then, Else: els}))
}

func (s *Stmts) If(id StmtID) (*IfStmt, bool) {
	p, ok := s.payload(id, StmtIf)
	if !ok {
		return nil, false
	}
	return s.Ifs.Get(p), true
}

func (s *Stmts) NewWhile(span source.Span, cond ExprID, body StmtID) StmtID {
	return s.new(StmtWhile, span, s.Whiles.Allocate(WhileStmt{Cond: cond, Body: body}))
}

func (s *Stmts) While(id StmtID) (*WhileStmt, bool) {
	p, ok := s.payload(id, StmtWhile)
	if !ok {
		return nil, false
	}
	return s.Whiles.Get(p), true
}

func (s *Stmts) NewLoop(span source.Span, body StmtID) StmtID {
	return s.new(StmtLoop, span, s.Loops.Allocate(LoopStmt{Body: body}))
}

func (s *Stmts) Loop(id StmtID) (*LoopStmt, bool) {
	p, ok := s.payload(id, StmtLoop)
	if !ok {
		return nil, false
	}
	return s.Loops.Get(p), true
}

func (s *Stmts) NewFor(span source.Span, f ForStmt) StmtID {
	return s.new(StmtFor, span, s.Fors.Allocate(f))
}

func (s *Stmts) For(id StmtID) (*ForStmt, bool) {
	p, ok := s.payload(id, StmtFor)
	if !ok {
		return nil, false
	}
	return s.Fors.Get(p), true
}

func (s *Stmts) NewBreak(span source.Span) StmtID {
	return s.new(StmtBreak, span, 0)
}

func (s *Stmts) NewContinue(span source.Span) StmtID {
	return s.new(StmtContinue, span, 0)
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	return s.new(StmtReturn, span, s.Returns.Allocate(ReturnStmt{Value: value}))
}

func (s *Stmts) Return(id StmtID) (*ReturnStmt, bool) {
	p, ok := s.payload(id, StmtReturn)
	if !ok {
		return nil, false
	}
	return s.Returns.Get(p), true
}
