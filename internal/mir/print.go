package mir

import (
	"fmt"
	"io"
	"strings"

	"borrowck/internal/ast"
)

// DumpModule writes a human-readable representation of every function.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	fmt.Fprintf(w, "funcs=%d\n", len(m.Funcs))
	for _, f := range m.Funcs {
		if err := DumpFunc(w, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes locals and blocks of f.
func DumpFunc(w io.Writer, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\nfn %s:\n", f.Name); err != nil {
		return err
	}
	fmt.Fprintf(w, "  locals:\n")
	for i := range f.Locals {
		l := &f.Locals[i]
		flags := formatLocalFlags(l.Flags)
		if flags != "" {
			fmt.Fprintf(w, "    _%d: %s %s name=%s\n", i, l.Kind, flags, l.Name)
		} else {
			fmt.Fprintf(w, "    _%d: %s name=%s\n", i, l.Kind, l.Name)
		}
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			fmt.Fprintf(w, "    %s\n", f.FormatInstr(&bb.Instrs[j]))
		}
		fmt.Fprintf(w, "    %s\n", f.formatTerm(&bb.Term))
	}
	return nil
}

func formatLocalFlags(flags LocalFlags) string {
	var parts []string
	if flags&LocalReturn != 0 {
		parts = append(parts, "ret")
	}
	if flags&LocalParam != 0 {
		parts = append(parts, "param")
	}
	if flags&LocalMutable != 0 {
		parts = append(parts, "mut")
	}
	if flags&LocalTemp != 0 {
		parts = append(parts, "temp")
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (f *Func) FormatInstr(ins *Instr) string {
	if ins == nil {
		return "<instr?>"
	}
	switch ins.Kind {
	case InstrAssign:
		decl := ""
		if ins.Assign.Decl {
			decl = "let "
		}
		return fmt.Sprintf("%s%s = %s", decl, f.PlaceString(ins.Assign.Dst), f.formatRValue(&ins.Assign.Src))
	case InstrRead:
		return "read " + f.PlaceString(ins.Read.Place)
	case InstrStorageDead:
		return "storage_dead " + f.PlaceString(LocalPlace(ins.StorageDead.Local))
	case InstrNop:
		return "nop"
	default:
		return "<instr?>"
	}
}

func (f *Func) formatRValue(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return f.formatOperand(&rv.Use)
	case RValueRef:
		if rv.Ref.Kind == BorrowUnique {
			return "&mut " + f.PlaceString(rv.Ref.Place)
		}
		return "&" + f.PlaceString(rv.Ref.Place)
	case RValueCall:
		return fmt.Sprintf("call %s(%s)", rv.Call.Callee, f.formatOperands(rv.Call.Args))
	case RValueAggregate:
		return fmt.Sprintf("%s{%s}", rv.Aggregate.Name, f.formatOperands(rv.Aggregate.Ops))
	case RValueBinaryOp:
		return fmt.Sprintf("%s %s %s", f.formatOperand(&rv.Binary.Left), rv.Binary.Op, f.formatOperand(&rv.Binary.Right))
	case RValueUnaryOp:
		op := "?"
		switch rv.Unary.Op {
		case ast.ExprUnaryNeg:
			op = "-"
		case ast.ExprUnaryNot:
			op = "!"
		}
		return op + f.formatOperand(&rv.Unary.Operand)
	case RValueIterNext:
		return "iter_next " + f.PlaceString(rv.IterNext.Iter)
	default:
		return "<rvalue?>"
	}
}

func (f *Func) formatOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i := range ops {
		parts[i] = f.formatOperand(&ops[i])
	}
	return strings.Join(parts, ", ")
}

func (f *Func) formatOperand(op *Operand) string {
	switch op.Kind {
	case OperandCopy:
		return "copy " + f.PlaceString(op.Place)
	case OperandMove:
		return "move " + f.PlaceString(op.Place)
	default:
		return formatConst(op.Const)
	}
}

func formatConst(c Const) string {
	switch c.Kind {
	case ConstUnit:
		return "()"
	case ConstOpaque:
		if c.Text == "" {
			return "opaque"
		}
		return "opaque " + c.Text
	default:
		return "const " + c.Text
	}
}

func (f *Func) formatTerm(term *Terminator) string {
	switch term.Kind {
	case TermReturn:
		return "return"
	case TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", f.formatOperand(&term.If.Cond), term.If.Then, term.If.Else)
	default:
		return "unreachable"
	}
}
