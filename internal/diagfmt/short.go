package diagfmt

import (
	"io"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// Short writes one line per diagnostic:
//
//	error BRW4003 src/main.rsl:4:5 cannot assign to `v` because it is borrowed
//
// Notes follow their diagnostic as "note" lines when withNotes is set.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, withNotes bool, mode PathMode) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	out := diag.FormatShortDiagnostics(bag.Items(), fs, withNotes, mode.String())
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
