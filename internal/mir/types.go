package mir

import (
	"borrowck/internal/source"
)

type BlockID int32
type LocalID int32

const (
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1

	// ReturnLocal is the slot that receives the function result.
	ReturnLocal LocalID = 0
)

// ValueKind is the coarse ownership class of a local's value.
type ValueKind uint8

const (
	// KindCopy values are duplicated on read.
	KindCopy ValueKind = iota
	// KindOwned values are moved on whole-value read.
	KindOwned
	// KindSharedRef is `&T`; copying it keeps the loans it holds.
	KindSharedRef
	// KindUniqueRef is `&mut T`; it moves like an owned value.
	KindUniqueRef
)

var valueKindNames = [...]string{
	KindCopy:      "copy",
	KindOwned:     "own",
	KindSharedRef: "ref",
	KindUniqueRef: "ref mut",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "?"
}

// IsRef reports whether values of this kind may hold loans by themselves.
func (k ValueKind) IsRef() bool {
	return k == KindSharedRef || k == KindUniqueRef
}

// MovesOnRead reports whether reading the whole value transfers ownership.
func (k ValueKind) MovesOnRead() bool {
	return k == KindOwned || k == KindUniqueRef
}

type LocalFlags uint8

const (
	LocalMutable LocalFlags = 1 << iota
	LocalParam
	LocalTemp
	LocalReturn
)

type Local struct {
	Name  string
	Kind  ValueKind
	Flags LocalFlags
	Span  source.Span
	// Decl is the span of the binding name, where a `mut` fix is inserted.
	Decl source.Span
}

func (l *Local) Mutable() bool { return l.Flags&LocalMutable != 0 }
func (l *Local) IsParam() bool { return l.Flags&LocalParam != 0 }
func (l *Local) IsTemp() bool  { return l.Flags&LocalTemp != 0 }

// Point addresses an instruction; Index == len(Instrs) is the terminator.
type Point struct {
	Block BlockID
	Index int
}

func (p Point) Less(o Point) bool {
	if p.Block != o.Block {
		return p.Block < o.Block
	}
	return p.Index < o.Index
}
