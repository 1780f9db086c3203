package ast

import "borrowck/internal/source"

type ItemKind uint8

const (
	ItemFn ItemKind = iota
	ItemStruct
	ItemImpl
)

func (k ItemKind) String() string {
	switch k {
	case ItemFn:
		return "fn"
	case ItemStruct:
		return "struct"
	case ItemImpl:
		return "impl"
	}
	return "item"
}

type Item struct {
	Kind    ItemKind
	Span    source.Span
	Payload PayloadID
}

// SelfKind is the receiver form of a method.
type SelfKind uint8

const (
	SelfNone     SelfKind = iota // free function or associated fn
	SelfValue                    // self
	SelfMutValue                 // mut self
	SelfRef                      // &self
	SelfRefMut                   // &mut self
)

func (k SelfKind) IsRef() bool { return k == SelfRef || k == SelfRefMut }

type FnParam struct {
	Name    source.StringID
	Mutable bool
	Type    TypeID
	Span    source.Span
}

type FnItem struct {
	Name      source.StringID
	NameSpan  source.Span
	Lifetimes []source.StringID // declared generic lifetimes, without the quote
	Self      SelfKind
	SelfLife  source.StringID // &'a self
	SelfSpan  source.Span
	Params    []FnParam
	Result    TypeID // NoTypeID means ()
	Body      StmtID // StmtBlock; NoStmtID for declarations without body
	Owner     source.StringID
}

type StructField struct {
	Name source.StringID
	Type TypeID
	Span source.Span
}

type StructItem struct {
	Name   source.StringID
	Fields []StructField
}

type ImplItem struct {
	Type    source.StringID
	Methods []ItemID
}

type Items struct {
	Arena   *Arena[Item]
	Fns     *Arena[FnItem]
	Structs *Arena[StructItem]
	Impls   *Arena[ImplItem]
}

func NewItems(capHint uint) *Items {
	return &Items{
		Arena:   NewArena[Item](capHint),
		Fns:     NewArena[FnItem](capHint),
		Structs: NewArena[StructItem](capHint / 4),
		Impls:   NewArena[ImplItem](capHint / 4),
	}
}

func (i *Items) Get(id ItemID) *Item {
	return i.Arena.Get(uint32(id))
}

func (i *Items) NewFn(span source.Span, fn FnItem) ItemID {
	payload := i.Fns.Allocate(fn)
	return ItemID(i.Arena.Allocate(Item{Kind: ItemFn, Span: span, Payload: PayloadID(payload)}))
}

func (i *Items) Fn(id ItemID) (*FnItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemFn {
		return nil, false
	}
	return i.Fns.Get(uint32(item.Payload)), true
}

func (i *Items) NewStruct(span source.Span, st StructItem) ItemID {
	payload := i.Structs.Allocate(st)
	return ItemID(i.Arena.Allocate(Item{Kind: ItemStruct, Span: span, Payload: PayloadID(payload)}))
}

func (i *Items) Struct(id ItemID) (*StructItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemStruct {
		return nil, false
	}
	return i.Structs.Get(uint32(item.Payload)), true
}

func (i *Items) NewImpl(span source.Span, im ImplItem) ItemID {
	payload := i.Impls.Allocate(im)
	return ItemID(i.Arena.Allocate(Item{Kind: ItemImpl, Span: span, Payload: PayloadID(payload)}))
}

func (i *Items) Impl(id ItemID) (*ImplItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemImpl {
		return nil, false
	}
	return i.Impls.Get(uint32(item.Payload)), true
}
