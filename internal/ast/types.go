package ast

import "borrowck/internal/source"

type TypeKind uint8

const (
	TypePath  TypeKind = iota // i32, String, Vec<T>
	TypeRef                   // &'a T, &mut T
	TypeSlice                 // [T]
	TypeArray                 // [T; N]
	TypeTuple                 // (A, B); () when empty
)

// TypeExpr is a syntactic type. There is no separate payload arena: types are
// small and rarely numerous.
type TypeExpr struct {
	Kind     TypeKind
	Span     source.Span
	Name     source.StringID // TypePath
	Args     []TypeID        // TypePath generics, TypeTuple elems
	Elem     TypeID          // TypeRef, TypeSlice, TypeArray
	Mutable  bool            // TypeRef
	Lifetime source.StringID // TypeRef, without the quote
}

type Types struct {
	Arena *Arena[TypeExpr]
}

func NewTypes(capHint uint) *Types {
	return &Types{Arena: NewArena[TypeExpr](capHint)}
}

func (t *Types) New(ty TypeExpr) TypeID {
	return TypeID(t.Arena.Allocate(ty))
}

func (t *Types) Get(id TypeID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}
