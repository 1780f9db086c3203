package ast

import (
	"borrowck/internal/source"
)

type Hints struct{ Files, Items, Stmts, Exprs, Types uint }

// Builder owns every arena of one parse session.
type Builder struct {
	Files   *Files
	Items   *Items
	Stmts   *Stmts
	Exprs   *Exprs
	Types   *Types
	Strings *source.Interner
}

func NewBuilder(hints Hints, strs *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 4
	}
	if hints.Items == 0 {
		hints.Items = 1 << 6
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Types == 0 {
		hints.Types = 1 << 6
	}
	if strs == nil {
		strs = source.NewInterner()
	}
	return &Builder{
		Files:   NewFiles(hints.Files),
		Items:   NewItems(hints.Items),
		Stmts:   NewStmts(hints.Stmts),
		Exprs:   NewExprs(hints.Exprs),
		Types:   NewTypes(hints.Types),
		Strings: strs,
	}
}

func (b *Builder) NewFile(sp source.Span) FileID {
	return b.Files.New(sp)
}

func (b *Builder) PushItem(file FileID, item ItemID) {
	f := b.Files.Get(file)
	f.Items = append(f.Items, item)
}

// Name resolves an interned identifier; NoStringID yields "".
func (b *Builder) Name(id source.StringID) string {
	s, _ := b.Strings.Lookup(id)
	return s
}
