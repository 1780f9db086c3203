package borrowck

import (
	"borrowck/internal/dataflow"
	"borrowck/internal/mir"
	"borrowck/internal/source"
)

// Ownership is the move state of a binding at a program point.
type Ownership uint8

const (
	Uninit Ownership = iota
	Owned
	Moved
	// MaybeMoved and MaybeUninit only arise where paths disagree.
	MaybeMoved
	MaybeUninit
)

var ownershipNames = [...]string{
	Uninit:      "uninit",
	Owned:       "owned",
	Moved:       "moved",
	MaybeMoved:  "maybe-moved",
	MaybeUninit: "maybe-uninit",
}

func (o Ownership) String() string {
	if int(o) < len(ownershipNames) {
		return ownershipNames[o]
	}
	return "?"
}

func joinOwnership(a, b Ownership) Ownership {
	switch {
	case a == b:
		return a
	case a == MaybeUninit || b == MaybeUninit:
		return MaybeUninit
	case a == Uninit || b == Uninit:
		return MaybeUninit
	default:
		return MaybeMoved
	}
}

// moveSite is a whole-local move; sites are numbered in block order.
type moveSite struct {
	Point mir.Point
	Local mir.LocalID
	Span  source.Span
}

type siteKey struct {
	point mir.Point
	local mir.LocalID
}

type moveSites struct {
	sites []moveSite
	index map[siteKey]int
}

func collectMoveSites(f *mir.Func) *moveSites {
	ms := &moveSites{index: make(map[siteKey]int)}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for i := range bb.Instrs {
			p := mir.Point{Block: bb.ID, Index: i}
			walkAccesses(&bb.Instrs[i], func(acc access) {
				if acc.kind != accessMove || !acc.place.IsLocal() {
					return
				}
				key := siteKey{point: p, local: acc.place.Local}
				if _, ok := ms.index[key]; ok {
					return
				}
				ms.index[key] = len(ms.sites)
				ms.sites = append(ms.sites, moveSite{Point: p, Local: acc.place.Local, Span: acc.span})
			})
		}
	}
	return ms
}

type localMoves struct {
	state Ownership
	// sites lists the moves that may have produced a Moved state
	sites dataflow.Bitset
}

type moveState struct {
	reached bool
	locals  []localMoves
}

func (s moveState) clone() moveState {
	out := moveState{reached: s.reached, locals: make([]localMoves, len(s.locals))}
	for i, lm := range s.locals {
		out.locals[i] = localMoves{state: lm.state, sites: lm.sites.Clone()}
	}
	return out
}

// moveAnalysis tracks the ownership state of every local forward.
type moveAnalysis struct {
	fn    *mir.Func
	sites *moveSites
}

func (a *moveAnalysis) Direction() dataflow.Direction { return dataflow.Forward }

func (a *moveAnalysis) Bottom() moveState {
	return moveState{locals: make([]localMoves, len(a.fn.Locals))}
}

// Boundary: parameters arrive initialized, everything else is not.
func (a *moveAnalysis) Boundary() moveState {
	s := moveState{reached: true, locals: make([]localMoves, len(a.fn.Locals))}
	for i := range a.fn.Locals {
		if a.fn.Locals[i].IsParam() {
			s.locals[i].state = Owned
		}
	}
	return s
}

func (a *moveAnalysis) Clone(s moveState) moveState {
	return s.clone()
}

func (a *moveAnalysis) Join(dst, src moveState) moveState {
	if !src.reached {
		return dst
	}
	if !dst.reached {
		return src.clone()
	}
	for i := range dst.locals {
		dst.locals[i].state = joinOwnership(dst.locals[i].state, src.locals[i].state)
		dst.locals[i].sites = dst.locals[i].sites.Union(src.locals[i].sites)
	}
	return dst
}

func (a *moveAnalysis) Equal(x, y moveState) bool {
	if x.reached != y.reached || len(x.locals) != len(y.locals) {
		return false
	}
	for i := range x.locals {
		if x.locals[i].state != y.locals[i].state || !x.locals[i].sites.Equal(y.locals[i].sites) {
			return false
		}
	}
	return true
}

func (a *moveAnalysis) TransferInstr(s moveState, p mir.Point, ins *mir.Instr) moveState {
	if !s.reached {
		return s
	}
	walkAccesses(ins, func(acc access) { a.apply(s, p, acc) })
	return s
}

func (a *moveAnalysis) TransferTerm(s moveState, _ mir.Point, _ *mir.Terminator) moveState {
	return s
}

// apply performs the state change of one access. Partial moves and
// writes through projections leave the root state alone.
func (a *moveAnalysis) apply(s moveState, p mir.Point, acc access) {
	if !acc.place.IsLocal() {
		return
	}
	lm := &s.locals[acc.place.Local]
	switch acc.kind {
	case accessMove:
		lm.state = Moved
		lm.sites = nil
		if idx, ok := a.sites.index[siteKey{point: p, local: acc.place.Local}]; ok {
			lm.sites = lm.sites.Add(idx)
		}
	case accessWrite:
		lm.state = Owned
		lm.sites = nil
	case accessStorageDead:
		lm.state = Uninit
		lm.sites = nil
	}
}
