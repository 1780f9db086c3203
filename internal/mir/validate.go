package mir

import (
	"errors"
	"fmt"
)

// ErrMalformed marks CFG invariant violations found by Validate.
var ErrMalformed = errors.New("malformed MIR")

// Validate checks function invariants. Violations are internal errors of
// the lowering, never user diagnostics.
func Validate(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error

	// 1. Entry exists
	if f.Block(f.Entry) == nil {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}

	// 2. Return slot present
	if len(f.Locals) == 0 || f.Locals[ReturnLocal].Flags&LocalReturn == 0 {
		errs = append(errs, errors.New("missing return slot _0"))
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if bb.ID != BlockID(i) { //nolint:gosec // bounded by block count
			errs = append(errs, fmt.Errorf("bb%d: block carries id bb%d", i, bb.ID))
		}
		if err := validateBlockTargets(f, bb); err != nil {
			errs = append(errs, err)
		}
		if err := validateLocalIDs(f, bb); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: function %s: %w", ErrMalformed, f.Name, errors.Join(errs...))
}

// validateBlockTargets checks the terminator and its targets.
func validateBlockTargets(f *Func, bb *Block) error {
	var errs []error
	switch bb.Term.Kind {
	case TermNone:
		errs = append(errs, fmt.Errorf("bb%d: unterminated block", bb.ID))
	case TermGoto:
		if f.Block(bb.Term.Goto.Target) == nil {
			errs = append(errs, fmt.Errorf("bb%d: goto target bb%d does not exist", bb.ID, bb.Term.Goto.Target))
		}
	case TermIf:
		if f.Block(bb.Term.If.Then) == nil {
			errs = append(errs, fmt.Errorf("bb%d: if then target bb%d does not exist", bb.ID, bb.Term.If.Then))
		}
		if f.Block(bb.Term.If.Else) == nil {
			errs = append(errs, fmt.Errorf("bb%d: if else target bb%d does not exist", bb.ID, bb.Term.If.Else))
		}
	}
	return errors.Join(errs...)
}

// validateLocalIDs checks that every referenced local exists.
func validateLocalIDs(f *Func, bb *Block) error {
	var errs []error
	check := func(id LocalID) {
		if f.Local(id) == nil {
			errs = append(errs, fmt.Errorf("bb%d: local _%d does not exist", bb.ID, id))
		}
	}
	for i := range bb.Instrs {
		ins := &bb.Instrs[i]
		VisitUses(ins, check)
		VisitDefs(ins, check)
		if ins.Kind == InstrAssign {
			check(ins.Assign.Dst.Local)
		}
	}
	VisitTermUses(&bb.Term, check)
	return errors.Join(errs...)
}
