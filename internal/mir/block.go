package mir

type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// TermPoint is the point of the block terminator.
func (b *Block) TermPoint() Point {
	return Point{Block: b.ID, Index: len(b.Instrs)}
}
