package borrowck

import (
	"borrowck/internal/dataflow"
	"borrowck/internal/mir"
)

// holdsState maps every local to the loans its value may carry.
type holdsState []dataflow.Bitset

// holdsAnalysis is the forward "may hold" problem. A reference picks up the
// loan that created it plus whatever its source carried; copies, moves,
// iteration and calls with tied parameters pass loans along.
type holdsAnalysis struct {
	fn    *mir.Func
	loans *loanTable
}

func (a *holdsAnalysis) Direction() dataflow.Direction { return dataflow.Forward }

func (a *holdsAnalysis) Bottom() holdsState {
	return make(holdsState, len(a.fn.Locals))
}

// Boundary: loans held by parameters come from the caller and are not
// tracked.
func (a *holdsAnalysis) Boundary() holdsState {
	return make(holdsState, len(a.fn.Locals))
}

func (a *holdsAnalysis) Clone(s holdsState) holdsState {
	out := make(holdsState, len(s))
	for i, set := range s {
		out[i] = set.Clone()
	}
	return out
}

func (a *holdsAnalysis) Join(dst, src holdsState) holdsState {
	for i := range src {
		dst[i] = dst[i].Union(src[i])
	}
	return dst
}

func (a *holdsAnalysis) Equal(x, y holdsState) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !x[i].Equal(y[i]) {
			return false
		}
	}
	return true
}

func (a *holdsAnalysis) TransferInstr(s holdsState, p mir.Point, ins *mir.Instr) holdsState {
	switch ins.Kind {
	case mir.InstrAssign:
		gen := a.gen(s, p, &ins.Assign.Src)
		dst := ins.Assign.Dst
		if dst.IsLocal() {
			s[dst.Local] = gen
		} else {
			// storing into a projection keeps what the root already held
			s[dst.Local] = s[dst.Local].Union(gen)
		}
	case mir.InstrStorageDead:
		s[ins.StorageDead.Local] = nil
	}
	return s
}

func (a *holdsAnalysis) TransferTerm(s holdsState, _ mir.Point, _ *mir.Terminator) holdsState {
	return s
}

// gen returns a fresh set of the loans the value of rv may carry.
func (a *holdsAnalysis) gen(s holdsState, p mir.Point, rv *mir.RValue) dataflow.Bitset {
	var out dataflow.Bitset
	switch rv.Kind {
	case mir.RValueUse:
		out = carried(s, out, rv.Use)
	case mir.RValueRef:
		if id, ok := a.loans.at[p]; ok {
			out = out.Add(int(id))
		}
		// &*r reborrows: the new reference lives no longer than r's loans
		out = out.Union(s[rv.Ref.Place.Local])
	case mir.RValueCall:
		for i, arg := range rv.Call.Args {
			if i < len(rv.Call.Sig.Ties) && rv.Call.Sig.Ties[i] && arg.Kind != mir.OperandConst {
				out = out.Union(s[arg.Place.Local])
			}
		}
	case mir.RValueAggregate:
		for _, op := range rv.Aggregate.Ops {
			out = carried(s, out, op)
		}
	case mir.RValueIterNext:
		out = out.Union(s[rv.IterNext.Iter.Local])
	}
	return out
}

// carried adds the loans of op to out. Only whole locals carry loans:
// a read through a projection produces a copy.
func carried(s holdsState, out dataflow.Bitset, op mir.Operand) dataflow.Bitset {
	if op.Kind == mir.OperandConst || !op.Place.IsLocal() {
		return out
	}
	return out.Union(s[op.Place.Local])
}
