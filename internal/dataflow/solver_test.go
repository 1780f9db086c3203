package dataflow

import (
	"errors"
	"testing"

	"borrowck/internal/mir"
)

// loopFunc builds
//
//	bb0: _1 = const 1; goto bb1
//	bb1: if copy _1 then bb2 else bb3
//	bb2: _2 = copy _1; goto bb1
//	bb3: return
func loopFunc() *mir.Func {
	one := mir.Operand{Kind: mir.OperandConst, Const: mir.Const{Kind: mir.ConstInt, Text: "1"}}
	copy1 := mir.Operand{Kind: mir.OperandCopy, Place: mir.LocalPlace(1)}
	assign := func(dst mir.LocalID, op mir.Operand) mir.Instr {
		return mir.Instr{Kind: mir.InstrAssign, Assign: mir.AssignInstr{
			Dst: mir.LocalPlace(dst),
			Src: mir.RValue{Kind: mir.RValueUse, Use: op},
		}}
	}
	return &mir.Func{
		Name: "loop",
		Locals: []mir.Local{
			{Name: "_0", Flags: mir.LocalReturn | mir.LocalMutable},
			{Name: "a", Kind: mir.KindCopy},
			{Name: "b", Kind: mir.KindCopy},
		},
		Blocks: []mir.Block{
			{ID: 0, Instrs: []mir.Instr{assign(1, one)}, Term: mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 1}}},
			{ID: 1, Term: mir.Terminator{Kind: mir.TermIf, If: mir.IfTerm{Cond: copy1, Then: 2, Else: 3}}},
			{ID: 2, Instrs: []mir.Instr{assign(2, copy1)}, Term: mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 1}}},
			{ID: 3, Term: mir.Terminator{Kind: mir.TermReturn}},
		},
	}
}

type assigned struct{}

func (assigned) Direction() Direction        { return Forward }
func (assigned) Bottom() Bitset              { return nil }
func (assigned) Boundary() Bitset            { return nil }
func (assigned) Clone(s Bitset) Bitset       { return s.Clone() }
func (assigned) Join(dst, src Bitset) Bitset { return dst.Union(src) }
func (assigned) Equal(a, b Bitset) bool      { return a.Equal(b) }
func (assigned) TransferTerm(s Bitset, _ mir.Point, _ *mir.Terminator) Bitset {
	return s
}
func (assigned) TransferInstr(s Bitset, _ mir.Point, ins *mir.Instr) Bitset {
	mir.VisitDefs(ins, func(id mir.LocalID) { s = s.Add(int(id)) })
	return s
}

type liveness struct{}

func (liveness) Direction() Direction        { return Backward }
func (liveness) Bottom() Bitset              { return nil }
func (liveness) Boundary() Bitset            { return nil }
func (liveness) Clone(s Bitset) Bitset       { return s.Clone() }
func (liveness) Join(dst, src Bitset) Bitset { return dst.Union(src) }
func (liveness) Equal(a, b Bitset) bool      { return a.Equal(b) }
func (liveness) TransferTerm(s Bitset, _ mir.Point, t *mir.Terminator) Bitset {
	mir.VisitTermUses(t, func(id mir.LocalID) { s = s.Add(int(id)) })
	return s
}
func (liveness) TransferInstr(s Bitset, _ mir.Point, ins *mir.Instr) Bitset {
	mir.VisitDefs(ins, func(id mir.LocalID) { s.Remove(int(id)) })
	mir.VisitUses(ins, func(id mir.LocalID) { s = s.Add(int(id)) })
	return s
}

func members(s Bitset) []int { return s.Members() }

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestForwardSolveMergesLoop(t *testing.T) {
	res, err := Solve[Bitset](loopFunc(), assigned{}, Options{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := members(res.Entry[1]); !sameInts(got, []int{1, 2}) {
		t.Fatalf("entry of loop head = %v, want [1 2]", got)
	}
	if got := members(res.Exit[3]); !sameInts(got, []int{1, 2}) {
		t.Fatalf("exit of return block = %v, want [1 2]", got)
	}

	before := res.Before()
	if got := members(before[mir.Point{Block: 0, Index: 0}]); len(got) != 0 {
		t.Fatalf("nothing is assigned before the first instruction, got %v", got)
	}
	if got := members(before[mir.Point{Block: 0, Index: 1}]); !sameInts(got, []int{1}) {
		t.Fatalf("before bb0 terminator = %v, want [1]", got)
	}
}

func TestBackwardSolveLiveness(t *testing.T) {
	res, err := Solve[Bitset](loopFunc(), liveness{}, Options{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := members(res.Entry[0]); !sameInts(got, []int{0}) {
		t.Fatalf("live into bb0 = %v, want [0]", got)
	}
	if got := members(res.Entry[1]); !sameInts(got, []int{0, 1}) {
		t.Fatalf("live into loop head = %v, want [0 1]", got)
	}

	before := res.Before()
	// `_2 = copy _1` kills nothing that is live and reads _1
	if got := members(before[mir.Point{Block: 2, Index: 0}]); !sameInts(got, []int{0, 1}) {
		t.Fatalf("live before bb2[0] = %v, want [0 1]", got)
	}
	if got := members(before[mir.Point{Block: 3, Index: 0}]); !sameInts(got, []int{0}) {
		t.Fatalf("live before return = %v, want [0]", got)
	}
}

// counter never converges on a loop.
type counter struct{}

func (counter) Direction() Direction  { return Forward }
func (counter) Bottom() int           { return 0 }
func (counter) Boundary() int         { return 0 }
func (counter) Clone(s int) int       { return s }
func (counter) Join(dst, src int) int { return max(dst, src) }
func (counter) Equal(a, b int) bool   { return a == b }
func (counter) TransferInstr(s int, _ mir.Point, _ *mir.Instr) int {
	return s + 1
}
func (counter) TransferTerm(s int, _ mir.Point, _ *mir.Terminator) int {
	return s
}

func TestSolveLimit(t *testing.T) {
	_, err := Solve[int](loopFunc(), counter{}, Options{MaxBlockVisits: 50})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestBitset(t *testing.T) {
	var s Bitset
	s = s.Add(3).Add(70).Add(3)
	if !s.Has(3) || !s.Has(70) || s.Has(4) || s.Has(-1) {
		t.Fatalf("membership wrong: %v", s.Members())
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}
	o := NewBitset(200).Add(3)
	if s.Equal(o) {
		t.Fatal("sets differ")
	}
	o = o.Add(70)
	if !s.Equal(o) || !o.Equal(s) {
		t.Fatal("Equal must ignore trailing empty words")
	}
	s.Remove(70)
	if s.Has(70) || s.Empty() {
		t.Fatalf("Remove failed: %v", s.Members())
	}
	c := s.Clone()
	c.Add(5)
	if s.Has(5) {
		t.Fatal("Clone must not alias")
	}
}
