// Package borrowck checks ownership and borrowing rules on MIR functions.
//
// Three dataflow problems run over the control-flow graph: the loans each
// local may hold (forward), local liveness (backward) and the ownership
// state of every binding (forward). A loan is live at a point iff a local
// that may hold it is live there, which gives non-lexical regions. Every
// access is then checked against the ownership state and the live loans.
package borrowck

import (
	"fmt"

	"borrowck/internal/dataflow"
	"borrowck/internal/diag"
	"borrowck/internal/fix"
	"borrowck/internal/mir"
	"borrowck/internal/source"
)

// Check analyses fn. Violations are returned in Result.Diagnostics; the
// error is non-nil only for malformed MIR or when a dataflow solve exceeds
// the iteration cap.
func Check(fn *mir.Func, opts Options) (*Result, error) {
	if err := mir.Validate(fn); err != nil {
		return nil, err
	}
	loans := collectLoans(fn)
	sites := collectMoveSites(fn)
	solver := opts.solverOptions()

	holdsRes, err := dataflow.Solve[holdsState](fn, &holdsAnalysis{fn: fn, loans: loans}, solver)
	if err != nil {
		return nil, fmt.Errorf("%w: loans of %s: %w", ErrAnalysisLimit, fn.Name, err)
	}
	liveRes, err := dataflow.Solve[dataflow.Bitset](fn, livenessAnalysis{}, solver)
	if err != nil {
		return nil, fmt.Errorf("%w: liveness of %s: %w", ErrAnalysisLimit, fn.Name, err)
	}
	moves := &moveAnalysis{fn: fn, sites: sites}
	movesRes, err := dataflow.Solve[moveState](fn, moves, solver)
	if err != nil {
		return nil, fmt.Errorf("%w: moves of %s: %w", ErrAnalysisLimit, fn.Name, err)
	}

	live := liveLoans(holdsRes.Before(), liveRes.Before())
	c := &checker{
		fn:     fn,
		policy: opts.conflictPolicy(),
		loans:  loans,
		sites:  sites,
		live:   live,
	}
	movesRes.EachPoint(func(p mir.Point, before moveState) {
		if !before.reached {
			return
		}
		s := before.clone()
		walkPoint(fn, p, func(acc access) {
			c.checkAccess(p, s, acc)
			moves.apply(s, p, acc)
		})
	})

	return &Result{
		Func:        fn,
		Loans:       loans.loans,
		Regions:     buildRegions(len(loans.loans), live),
		Diagnostics: c.out.sorted(),
	}, nil
}

type checker struct {
	fn     *mir.Func
	policy mir.ConflictPolicy
	loans  *loanTable
	sites  *moveSites
	live   map[mir.Point]dataflow.Bitset
	out    collector
}

func (c *checker) checkAccess(p mir.Point, s moveState, acc access) {
	switch acc.kind {
	case accessRead, accessMove:
		c.checkInitialized(p, s, acc)
		c.checkLoans(p, acc)
	case accessWrite:
		c.checkWrite(p, s, acc)
	case accessBorrowShared, accessBorrowUnique:
		c.checkBorrow(p, s, acc)
	case accessStorageDead:
		c.checkDrop(p, acc)
	}
}

// checkInitialized requires the root of the accessed place to hold a value.
func (c *checker) checkInitialized(p mir.Point, s moveState, acc access) {
	root := acc.place.Local
	lm := s.locals[root]
	name := c.name(root)
	switch lm.state {
	case Moved, MaybeMoved:
		c.report(UseAfterMove, p, acc, fmt.Sprintf("use of moved value: `%s`", name), c.moveRelated(p, lm), nil)
	case Uninit:
		c.report(UseOfUninitialized, p, acc, fmt.Sprintf("used binding `%s` isn't initialized", name), nil, nil)
	case MaybeUninit:
		c.report(UseOfUninitialized, p, acc, fmt.Sprintf("used binding `%s` is possibly-uninitialized", name), nil, nil)
	}
}

func (c *checker) checkWrite(p mir.Point, s moveState, acc access) {
	root := acc.place.Local
	local := c.fn.Local(root)
	if acc.place.IsLocal() {
		if !acc.decl && !local.Mutable() && s.locals[root].state != Uninit {
			c.report(AssignToImmutable, p, acc,
				fmt.Sprintf("cannot assign twice to immutable variable `%s`", local.Name), nil, c.mutFix(root))
		}
		c.checkLoans(p, acc)
		return
	}
	placeText := c.fn.PlaceString(acc.place)
	switch {
	case acc.place.Proj[0].Kind == mir.PlaceProjDeref:
		if local.Kind == mir.KindSharedRef {
			c.report(AssignToImmutable, p, acc,
				fmt.Sprintf("cannot assign to `%s`, which is behind a `&` reference", placeText), nil, nil)
		}
	case !acc.place.HasDeref() && !local.Mutable():
		c.report(AssignToImmutable, p, acc,
			fmt.Sprintf("cannot assign to `%s`, as `%s` is not declared as mutable", placeText, local.Name), nil, c.mutFix(root))
	}
	c.checkInitialized(p, s, acc)
	c.checkLoans(p, acc)
}

func (c *checker) checkBorrow(p mir.Point, s moveState, acc access) {
	root := acc.place.Local
	local := c.fn.Local(root)
	lm := s.locals[root]
	switch lm.state {
	case Moved, MaybeMoved:
		c.report(BorrowOfMovedOrUninit, p, acc, fmt.Sprintf("borrow of moved value: `%s`", local.Name), c.moveRelated(p, lm), nil)
	case Uninit, MaybeUninit:
		c.report(BorrowOfMovedOrUninit, p, acc, fmt.Sprintf("borrow of uninitialized binding `%s`", local.Name), nil, nil)
	}
	if acc.kind == accessBorrowUnique {
		placeText := c.fn.PlaceString(acc.place)
		switch {
		case len(acc.place.Proj) > 0 && acc.place.Proj[0].Kind == mir.PlaceProjDeref:
			if local.Kind == mir.KindSharedRef {
				c.report(AssignToImmutable, p, acc,
					fmt.Sprintf("cannot borrow `%s` as mutable, as it is behind a `&` reference", placeText), nil, nil)
			}
		case !acc.place.HasDeref() && !local.Mutable():
			c.report(AssignToImmutable, p, acc,
				fmt.Sprintf("cannot borrow `%s` as mutable, as it is not declared as mutable", placeText), nil, c.mutFix(root))
		}
	}
	c.checkLoans(p, acc)
}

// checkLoans compares acc with every loan live on entry to p.
func (c *checker) checkLoans(p mir.Point, acc access) {
	placeText := c.fn.PlaceString(acc.place)
	c.live[p].Each(func(id int) {
		loan := c.loans.get(id)
		if loan == nil || !c.policy.Conflicts(loan.Place, acc.place) {
			return
		}
		switch acc.kind {
		case accessRead:
			if loan.Unique() {
				c.reportLoan(ReadWhileWrite, p, acc, loan,
					fmt.Sprintf("cannot use `%s` because it was mutably borrowed", placeText), "mutable borrow occurs here")
			}
		case accessMove:
			c.reportLoan(MoveWhileBorrowed, p, acc, loan,
				fmt.Sprintf("cannot move out of `%s` because it is borrowed", placeText),
				fmt.Sprintf("borrow of `%s` occurs here", c.fn.PlaceString(loan.Place)))
		case accessWrite:
			if acc.place.IsLocal() && loan.Place.HasDeref() {
				// overwriting a reference leaves its referent borrowed
				return
			}
			msg := fmt.Sprintf("cannot assign to `%s` because it is borrowed", placeText)
			if loan.Unique() {
				c.reportLoan(WriteWhileWrite, p, acc, loan, msg, "mutable borrow occurs here")
			} else {
				c.reportLoan(WriteWhileRead, p, acc, loan, msg, "immutable borrow occurs here")
			}
		case accessBorrowShared:
			if loan.Unique() {
				c.reportLoan(ReadWhileWrite, p, acc, loan,
					fmt.Sprintf("cannot borrow `%s` as immutable because it is also borrowed as mutable", placeText),
					"mutable borrow occurs here")
			}
		case accessBorrowUnique:
			if loan.Unique() {
				c.reportLoan(WriteWhileWrite, p, acc, loan,
					fmt.Sprintf("cannot borrow `%s` as mutable more than once at a time", placeText),
					"first mutable borrow occurs here")
			} else {
				c.reportLoan(WriteWhileRead, p, acc, loan,
					fmt.Sprintf("cannot borrow `%s` as mutable because it is also borrowed as immutable", placeText),
					"immutable borrow occurs here")
			}
		}
	})
}

// checkDrop rejects ending the scope of a local whose storage is still
// borrowed. Loans through a dereference point elsewhere and survive.
func (c *checker) checkDrop(p mir.Point, acc access) {
	dead := acc.place.Local
	c.live[p].Each(func(id int) {
		loan := c.loans.get(id)
		if loan == nil || loan.Place.Local != dead || loan.Place.HasDeref() {
			return
		}
		c.reportLoan(DroppedWhileBorrowed, p, acc, loan,
			fmt.Sprintf("`%s` does not live long enough", c.name(dead)),
			"borrowed value does not live long enough")
	})
}

func (c *checker) reportLoan(kind Kind, p mir.Point, acc access, loan *Loan, msg, label string) {
	c.report(kind, p, acc, msg, &Related{Point: loan.Point, Span: loan.Span, Label: label}, nil)
}

func (c *checker) report(kind Kind, p mir.Point, acc access, msg string, related *Related, suggestion *diag.Fix) {
	c.out.add(Diagnostic{
		Kind:      kind,
		Place:     acc.place,
		PlaceText: c.fn.PlaceString(acc.place),
		Point:     p,
		Span:      acc.span,
		Related:   related,
		Message:   msg,
		Fix:       suggestion,
	})
}

// moveRelated points at the earliest move that may have emptied the local.
func (c *checker) moveRelated(p mir.Point, lm localMoves) *Related {
	members := lm.sites.Members()
	if len(members) == 0 {
		return nil
	}
	site := c.sites.sites[members[0]]
	label := "value moved here"
	if !site.Point.Less(p) {
		label = "value moved here, in previous iteration of loop"
	}
	return &Related{Point: site.Point, Span: site.Span, Label: label}
}

// mutFix inserts `mut ` before the binding name. Temporaries and self
// have no binding to edit.
func (c *checker) mutFix(id mir.LocalID) *diag.Fix {
	local := c.fn.Local(id)
	if local == nil || local.IsTemp() || local.Name == "self" || local.Decl == (source.Span{}) {
		return nil
	}
	return fix.InsertText(fmt.Sprintf("consider making `%s` mutable", local.Name), local.Decl, "mut ")
}

func (c *checker) name(id mir.LocalID) string {
	if local := c.fn.Local(id); local != nil {
		return local.Name
	}
	return "_"
}
