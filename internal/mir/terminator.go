package mir

import "borrowck/internal/source"

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermUnreachable
)

type Terminator struct {
	Kind TermKind
	Span source.Span

	Goto GotoTerm
	If   IfTerm
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

// Successors lists the blocks control may transfer to.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermGoto:
		return []BlockID{t.Goto.Target}
	case TermIf:
		if t.If.Then == t.If.Else {
			return []BlockID{t.If.Then}
		}
		return []BlockID{t.If.Then, t.If.Else}
	default:
		return nil
	}
}
