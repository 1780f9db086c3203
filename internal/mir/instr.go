package mir

import (
	"borrowck/internal/ast"
	"borrowck/internal/source"
)

// InstrKind enumerates instruction kinds in MIR.
type InstrKind uint8

const (
	// InstrAssign writes an rvalue into a place.
	InstrAssign InstrKind = iota
	// InstrRead uses a place without moving or borrowing it.
	InstrRead
	// InstrStorageDead ends the lexical scope of a local.
	InstrStorageDead
	// InstrNop does nothing.
	InstrNop
)

// Instr represents a MIR instruction.
type Instr struct {
	Kind InstrKind
	Span source.Span

	Assign      AssignInstr
	Read        ReadInstr
	StorageDead StorageDeadInstr
}

// AssignInstr represents an assignment instruction. Decl marks the
// initialization performed by a `let` or loop binding.
type AssignInstr struct {
	Dst  Place
	Src  RValue
	Decl bool
}

type ReadInstr struct {
	Place Place
}

type StorageDeadInstr struct {
	Local LocalID
}

type OperandKind uint8

const (
	OperandConst OperandKind = iota
	OperandCopy
	OperandMove
)

type Operand struct {
	Kind  OperandKind
	Place Place
	Const Const
	Span  source.Span
}

type ConstKind uint8

const (
	ConstUnit ConstKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstString
	ConstChar
	// ConstOpaque stands for values the analysis does not model,
	// such as unresolved names or the loop-continue condition.
	ConstOpaque
)

type Const struct {
	Kind ConstKind
	Text string
}

type RValueKind uint8

const (
	RValueUse RValueKind = iota
	RValueRef
	RValueCall
	RValueAggregate
	RValueBinaryOp
	RValueUnaryOp
	RValueIterNext
)

type RValue struct {
	Kind RValueKind

	Use       Operand
	Ref       RefRValue
	Call      CallRValue
	Aggregate AggregateRValue
	Binary    BinaryOp
	Unary     UnaryOp
	IterNext  IterNextRValue
}

type BorrowKind uint8

const (
	BorrowShared BorrowKind = iota
	BorrowUnique
)

func (k BorrowKind) String() string {
	if k == BorrowUnique {
		return "&mut"
	}
	return "&"
}

type RefRValue struct {
	Kind  BorrowKind
	Place Place
	// Span covers the borrow expression itself.
	Span source.Span
}

// CallSig describes how a call result relates to its arguments. Ties[i]
// reports that the result may hold the loans carried by argument i.
type CallSig struct {
	Declared bool
	Ties     []bool
}

type CallRValue struct {
	Callee string
	Args   []Operand
	Sig    CallSig
}

type AggregateRValue struct {
	Name string // struct name, "tuple", or macro name
	Ops  []Operand
}

type BinaryOp struct {
	Op    ast.ExprBinaryOp
	Left  Operand
	Right Operand
}

type UnaryOp struct {
	Op      ast.ExprUnaryOp
	Operand Operand
}

type IterNextRValue struct {
	Iter Place
}

// Operands returns every operand the rvalue consumes, in evaluation order.
func (rv *RValue) Operands() []Operand {
	switch rv.Kind {
	case RValueUse:
		return []Operand{rv.Use}
	case RValueCall:
		return rv.Call.Args
	case RValueAggregate:
		return rv.Aggregate.Ops
	case RValueBinaryOp:
		return []Operand{rv.Binary.Left, rv.Binary.Right}
	case RValueUnaryOp:
		return []Operand{rv.Unary.Operand}
	default:
		return nil
	}
}
