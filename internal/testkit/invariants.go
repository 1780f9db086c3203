// Package testkit holds structural checks shared by the tests of several
// packages.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/ast"
	"borrowck/internal/mir"
	"borrowck/internal/source"
)

// CheckSpanInvariants verifies the spans of a parsed file:
// 1) file.Span is non-empty and within file content bounds
// 2) every item span is non-empty and fully contained in file.Span
// 3) the name of every function lies inside its item
func CheckSpanInvariants(b *ast.Builder, fileID ast.FileID, sf *source.File) error {
	if b == nil || sf == nil {
		return fmt.Errorf("nil builder or file")
	}
	f := b.Files.Get(fileID)
	if f == nil {
		return fmt.Errorf("file node not found")
	}

	if f.Span.End <= f.Span.Start {
		return fmt.Errorf("file span is empty: %v", f.Span)
	}
	if f.Span.File != sf.ID {
		return fmt.Errorf("file span points to different file id: got=%d want=%d", f.Span.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if f.Span.End > lenContent {
		return fmt.Errorf("file span end beyond content: %d > %d", f.Span.End, lenContent)
	}

	for _, id := range f.Items {
		item := b.Items.Get(id)
		if item == nil {
			return fmt.Errorf("nil item for id=%d", id)
		}
		sp := item.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("empty item span: %v", sp)
		}
		if !f.Span.Contains(sp) {
			return fmt.Errorf("item span %v is outside file span %v", sp, f.Span)
		}
		if fn, ok := b.Items.Fn(id); ok && !sp.Contains(fn.NameSpan) {
			return fmt.Errorf("fn %q: name span %v is outside item span %v", b.Name(fn.Name), fn.NameSpan, sp)
		}
	}
	return nil
}

// CheckMIRSpans verifies that every span recorded in fn points into the
// function's own source range. Zero spans are allowed for synthesized code.
func CheckMIRSpans(fn *mir.Func) error {
	if fn == nil {
		return fmt.Errorf("nil function")
	}
	if fn.Span.End < fn.Span.Start {
		return fmt.Errorf("%s: inverted span %v", fn.Name, fn.Span)
	}
	check := func(what string, sp source.Span) error {
		if sp == (source.Span{}) || fn.Span.Contains(sp) {
			return nil
		}
		return fmt.Errorf("%s: %s span %v is outside %v", fn.Name, what, sp, fn.Span)
	}
	for i := range fn.Locals {
		local := &fn.Locals[i]
		if err := check("local "+local.Name, local.Decl); err != nil {
			return err
		}
	}
	for _, b := range fn.Blocks {
		for i := range b.Instrs {
			if err := check(fmt.Sprintf("bb%d[%d]", b.ID, i), b.Instrs[i].Span); err != nil {
				return err
			}
		}
		if err := check(fmt.Sprintf("bb%d terminator", b.ID), b.Term.Span); err != nil {
			return err
		}
	}
	return nil
}
