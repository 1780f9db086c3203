package mir

import (
	"errors"
	"strings"
	"testing"
)

func gotoTerm(target BlockID) Terminator {
	return Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}}
}

func returnFunc(blocks ...Block) *Func {
	return &Func{
		Name:   "f",
		Locals: []Local{{Name: "_0", Flags: LocalReturn | LocalMutable}},
		Blocks: blocks,
	}
}

func TestSimplifyCFGRedirectsTrivialGotos(t *testing.T) {
	f := returnFunc(
		Block{ID: 0, Instrs: []Instr{{Kind: InstrNop}}, Term: gotoTerm(1)},
		Block{ID: 1, Term: gotoTerm(2)},
		Block{ID: 2, Term: Terminator{Kind: TermReturn}},
		Block{ID: 3, Term: Terminator{Kind: TermReturn}},
	)
	SimplifyCFG(f)
	if len(f.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Term.Kind != TermGoto || f.Blocks[0].Term.Goto.Target != 1 {
		t.Fatalf("entry should jump to renumbered return block, got %+v", f.Blocks[0].Term)
	}
	if f.Blocks[1].Term.Kind != TermReturn || f.Blocks[1].ID != 1 {
		t.Fatalf("unexpected second block %+v", f.Blocks[1])
	}
	if err := Validate(f); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSimplifyCFGKeepsEmptySelfLoop(t *testing.T) {
	f := returnFunc(
		Block{ID: 0, Term: gotoTerm(1)},
		Block{ID: 1, Term: gotoTerm(1)},
	)
	SimplifyCFG(f)
	if len(f.Blocks) != 2 {
		t.Fatalf("expected the loop to survive, got %d blocks", len(f.Blocks))
	}
	if f.Blocks[1].Term.Goto.Target != 1 {
		t.Fatalf("self loop target changed: %+v", f.Blocks[1].Term)
	}
}

func TestSimplifyCFGRedirectsIfTargets(t *testing.T) {
	cond := Operand{Kind: OperandConst, Const: Const{Kind: ConstBool, Text: "true"}}
	f := returnFunc(
		Block{ID: 0, Term: Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: 1, Else: 2}}},
		Block{ID: 1, Term: gotoTerm(3)},
		Block{ID: 2, Term: gotoTerm(3)},
		Block{ID: 3, Term: Terminator{Kind: TermReturn}},
	)
	SimplifyCFG(f)
	if len(f.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(f.Blocks))
	}
	term := f.Blocks[0].Term
	if term.If.Then != 1 || term.If.Else != 1 {
		t.Fatalf("both branches should reach the return block: %+v", term.If)
	}
	if succ := term.Successors(); len(succ) != 1 {
		t.Fatalf("successors should be deduplicated, got %v", succ)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		f    *Func
		want string
	}{
		{
			name: "bad goto",
			f:    returnFunc(Block{ID: 0, Term: gotoTerm(7)}),
			want: "goto target bb7 does not exist",
		},
		{
			name: "unterminated",
			f:    returnFunc(Block{ID: 0}),
			want: "unterminated block",
		},
		{
			name: "unknown local",
			f: returnFunc(Block{ID: 0, Instrs: []Instr{
				{Kind: InstrRead, Read: ReadInstr{Place: LocalPlace(4)}},
			}, Term: Terminator{Kind: TermReturn}}),
			want: "local _4 does not exist",
		},
		{
			name: "missing return slot",
			f:    &Func{Name: "g", Blocks: []Block{{ID: 0, Term: Terminator{Kind: TermReturn}}}},
			want: "missing return slot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.f)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("error %v does not wrap ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	ok := returnFunc(Block{ID: 0, Term: Terminator{Kind: TermReturn}})
	if err := Validate(ok); err != nil {
		t.Fatalf("valid function rejected: %v", err)
	}
}
