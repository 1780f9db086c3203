// Package dataflow solves monotone dataflow problems over MIR control-flow
// graphs.
package dataflow

import (
	"errors"
	"fmt"

	"borrowck/internal/mir"
)

// DefaultMaxBlockVisits bounds the number of block transfers per solve.
const DefaultMaxBlockVisits = 10000

// ErrLimitExceeded is returned when a solve does not converge within the
// configured number of block visits.
var ErrLimitExceeded = errors.New("dataflow iteration limit exceeded")

type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Analysis describes a lattice and its transfer functions. Transfer
// functions may mutate and return the state they receive.
type Analysis[S any] interface {
	Direction() Direction
	// Bottom is the identity of Join.
	Bottom() S
	// Boundary is the state at the entry block (forward) or at blocks
	// without successors (backward).
	Boundary() S
	Clone(s S) S
	// Join merges src into dst and returns the result.
	Join(dst, src S) S
	Equal(a, b S) bool
	TransferInstr(s S, p mir.Point, ins *mir.Instr) S
	TransferTerm(s S, p mir.Point, term *mir.Terminator) S
}

type Options struct {
	// MaxBlockVisits <= 0 selects DefaultMaxBlockVisits.
	MaxBlockVisits int
}

// Results holds the fixed point in program order: Entry[b] is the state at
// the start of block b and Exit[b] the state after its terminator.
type Results[S any] struct {
	Entry  []S
	Exit   []S
	Visits int

	analysis Analysis[S]
	fn       *mir.Func
}

// Solve iterates the analysis over f until no block state changes. Blocks
// are visited round-robin in reverse postorder (postorder for backward
// problems), which converges in a few rounds for reducible graphs.
func Solve[S any](f *mir.Func, a Analysis[S], opts Options) (*Results[S], error) {
	limit := opts.MaxBlockVisits
	if limit <= 0 {
		limit = DefaultMaxBlockVisits
	}
	n := len(f.Blocks)
	res := &Results[S]{
		Entry:    make([]S, n),
		Exit:     make([]S, n),
		analysis: a,
		fn:       f,
	}
	for i := range n {
		res.Entry[i] = a.Bottom()
		res.Exit[i] = a.Bottom()
	}

	order := f.ReversePostOrder()
	forward := a.Direction() == Forward
	if !forward {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	preds := f.Predecessors()

	pending := make([]bool, n)
	visited := make([]bool, n)
	for _, id := range order {
		pending[id] = true
	}

	for changed := true; changed; {
		changed = false
		for _, id := range order {
			if !pending[id] {
				continue
			}
			pending[id] = false
			res.Visits++
			if res.Visits > limit {
				return res, fmt.Errorf("%w: function %s after %d block visits", ErrLimitExceeded, f.Name, limit)
			}
			bb := f.Block(id)

			var in, out S
			if forward {
				in = a.Bottom()
				if id == f.Entry {
					in = a.Join(in, a.Boundary())
				}
				for _, p := range preds[id] {
					in = a.Join(in, res.Exit[p])
				}
				out = transferBlock(a, bb, a.Clone(in))
				res.Entry[id] = in
				if visited[id] && a.Equal(out, res.Exit[id]) {
					continue
				}
				res.Exit[id] = out
				for _, succ := range bb.Term.Successors() {
					pending[succ] = true
				}
			} else {
				in = a.Bottom()
				succs := bb.Term.Successors()
				if len(succs) == 0 {
					in = a.Join(in, a.Boundary())
				}
				for _, s := range succs {
					in = a.Join(in, res.Entry[s])
				}
				out = transferBlockBackward(a, bb, a.Clone(in))
				res.Exit[id] = in
				if visited[id] && a.Equal(out, res.Entry[id]) {
					continue
				}
				res.Entry[id] = out
				for _, p := range preds[id] {
					pending[p] = true
				}
			}
			visited[id] = true
			changed = true
		}
	}
	return res, nil
}

func transferBlock[S any](a Analysis[S], bb *mir.Block, s S) S {
	for i := range bb.Instrs {
		s = a.TransferInstr(s, mir.Point{Block: bb.ID, Index: i}, &bb.Instrs[i])
	}
	return a.TransferTerm(s, bb.TermPoint(), &bb.Term)
}

func transferBlockBackward[S any](a Analysis[S], bb *mir.Block, s S) S {
	s = a.TransferTerm(s, bb.TermPoint(), &bb.Term)
	for i := len(bb.Instrs) - 1; i >= 0; i-- {
		s = a.TransferInstr(s, mir.Point{Block: bb.ID, Index: i}, &bb.Instrs[i])
	}
	return s
}

// EachPoint replays the fixed point and calls visit with the state holding
// just before every reachable instruction and terminator executes. For
// backward problems that is the state flowing out of the point's transfer.
// Blocks are visited in id order and points in program order.
func (r *Results[S]) EachPoint(visit func(p mir.Point, before S)) {
	a := r.analysis
	reachable := make([]bool, len(r.fn.Blocks))
	for _, id := range r.fn.ReversePostOrder() {
		reachable[id] = true
	}
	for i := range r.fn.Blocks {
		bb := &r.fn.Blocks[i]
		if !reachable[i] {
			continue
		}
		if a.Direction() == Forward {
			s := a.Clone(r.Entry[i])
			for j := range bb.Instrs {
				p := mir.Point{Block: bb.ID, Index: j}
				visit(p, s)
				s = a.TransferInstr(s, p, &bb.Instrs[j])
			}
			visit(bb.TermPoint(), s)
			continue
		}
		states := make([]S, len(bb.Instrs)+1)
		s := a.Clone(r.Exit[i])
		s = a.TransferTerm(s, bb.TermPoint(), &bb.Term)
		states[len(bb.Instrs)] = a.Clone(s)
		for j := len(bb.Instrs) - 1; j >= 0; j-- {
			s = a.TransferInstr(s, mir.Point{Block: bb.ID, Index: j}, &bb.Instrs[j])
			states[j] = a.Clone(s)
		}
		for j, st := range states {
			visit(mir.Point{Block: bb.ID, Index: j}, st)
		}
	}
}

// Before collects EachPoint into a map. States are cloned, so callers may
// keep them.
func (r *Results[S]) Before() map[mir.Point]S {
	out := make(map[mir.Point]S)
	r.EachPoint(func(p mir.Point, s S) {
		out[p] = r.analysis.Clone(s)
	})
	return out
}
