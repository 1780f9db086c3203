package borrowck

import (
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/mir"
	"borrowck/internal/source"
)

// LoanID indexes Result.Loans.
type LoanID uint32

// Loan is one borrow instruction of the function.
type Loan struct {
	ID    LoanID
	Kind  mir.BorrowKind
	Place mir.Place
	Point mir.Point
	Span  source.Span
	// Holder is the local the reference is first stored into.
	Holder mir.LocalID
}

func (l *Loan) Unique() bool {
	return l.Kind == mir.BorrowUnique
}

// loanTable numbers the borrows of a function in block order.
type loanTable struct {
	loans []Loan
	at    map[mir.Point]LoanID
}

func collectLoans(f *mir.Func) *loanTable {
	lt := &loanTable{at: make(map[mir.Point]LoanID)}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for i := range bb.Instrs {
			ins := &bb.Instrs[i]
			if ins.Kind != mir.InstrAssign || ins.Assign.Src.Kind != mir.RValueRef {
				continue
			}
			value, err := safecast.Conv[uint32](len(lt.loans))
			if err != nil {
				panic(fmt.Errorf("loan table overflow: %w", err))
			}
			ref := &ins.Assign.Src.Ref
			span := ref.Span
			if span == (source.Span{}) {
				span = ins.Span
			}
			p := mir.Point{Block: bb.ID, Index: i}
			id := LoanID(value)
			lt.loans = append(lt.loans, Loan{
				ID:     id,
				Kind:   ref.Kind,
				Place:  ref.Place,
				Point:  p,
				Span:   span,
				Holder: ins.Assign.Dst.Local,
			})
			lt.at[p] = id
		}
	}
	return lt
}

func (lt *loanTable) get(id int) *Loan {
	if id < 0 || id >= len(lt.loans) {
		return nil
	}
	return &lt.loans[id]
}
