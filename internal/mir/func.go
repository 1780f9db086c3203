package mir

import (
	"borrowck/internal/source"
)

type Func struct {
	Name string
	Span source.Span

	Locals     []Local
	ParamCount int
	Blocks     []Block
	Entry      BlockID
}

// Module holds the lowered functions of one file in source order.
type Module struct {
	Funcs []*Func
}

func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

func (f *Func) Local(id LocalID) *Local {
	if f == nil || id < 0 || int(id) >= len(f.Locals) {
		return nil
	}
	return &f.Locals[id]
}

// InstrAt returns the instruction at p, or nil for a terminator point.
func (f *Func) InstrAt(p Point) *Instr {
	b := f.Block(p.Block)
	if b == nil || p.Index < 0 || p.Index >= len(b.Instrs) {
		return nil
	}
	return &b.Instrs[p.Index]
}

// SpanAt returns the source span of the instruction or terminator at p.
func (f *Func) SpanAt(p Point) source.Span {
	b := f.Block(p.Block)
	if b == nil {
		return f.Span
	}
	if p.Index < len(b.Instrs) {
		return b.Instrs[p.Index].Span
	}
	return b.Term.Span
}

// Predecessors returns the predecessor lists indexed by block.
func (f *Func) Predecessors() [][]BlockID {
	preds := make([][]BlockID, len(f.Blocks))
	for i := range f.Blocks {
		for _, succ := range f.Blocks[i].Term.Successors() {
			if int(succ) < len(preds) {
				preds[succ] = append(preds[succ], f.Blocks[i].ID)
			}
		}
	}
	return preds
}

// ReversePostOrder lists the blocks reachable from the entry so that every
// block precedes its successors except along back edges.
func (f *Func) ReversePostOrder() []BlockID {
	if f == nil || len(f.Blocks) == 0 {
		return nil
	}
	visited := make([]bool, len(f.Blocks))
	post := make([]BlockID, 0, len(f.Blocks))
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) || visited[id] {
			return
		}
		visited[id] = true
		for _, succ := range f.Blocks[id].Term.Successors() {
			visit(succ)
		}
		post = append(post, id)
	}
	visit(f.Entry)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
