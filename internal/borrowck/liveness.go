package borrowck

import (
	"borrowck/internal/dataflow"
	"borrowck/internal/mir"
)

// livenessAnalysis computes the locals whose current value may still be
// read. A whole-local write or StorageDead kills; any use revives.
type livenessAnalysis struct{}

func (livenessAnalysis) Direction() dataflow.Direction { return dataflow.Backward }
func (livenessAnalysis) Bottom() dataflow.Bitset       { return nil }
func (livenessAnalysis) Boundary() dataflow.Bitset     { return nil }
func (livenessAnalysis) Clone(s dataflow.Bitset) dataflow.Bitset {
	return s.Clone()
}

func (livenessAnalysis) Join(dst, src dataflow.Bitset) dataflow.Bitset {
	return dst.Union(src)
}

func (livenessAnalysis) Equal(a, b dataflow.Bitset) bool {
	return a.Equal(b)
}

func (livenessAnalysis) TransferInstr(s dataflow.Bitset, _ mir.Point, ins *mir.Instr) dataflow.Bitset {
	mir.VisitDefs(ins, func(id mir.LocalID) { s.Remove(int(id)) })
	mir.VisitUses(ins, func(id mir.LocalID) { s = s.Add(int(id)) })
	return s
}

func (livenessAnalysis) TransferTerm(s dataflow.Bitset, _ mir.Point, t *mir.Terminator) dataflow.Bitset {
	mir.VisitTermUses(t, func(id mir.LocalID) { s = s.Add(int(id)) })
	return s
}
