package diagfmt

import (
	"errors"
	"fmt"
	"strings"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

type fixEditPreview struct {
	before []string
	after  []string
}

// buildFixEditPreview returns the lines touched by edit before and after
// applying it.
func buildFixEditPreview(fs *source.FileSet, edit diag.FixEdit) (fixEditPreview, error) {
	if fs == nil {
		return fixEditPreview{}, errors.New("nil FileSet")
	}
	if int(edit.Span.File) >= fs.Len() {
		return fixEditPreview{}, fmt.Errorf("file %d not found in FileSet", edit.Span.File)
	}
	file := fs.Get(edit.Span.File)

	startPos, endPos := fs.Resolve(edit.Span)
	blockStart := int(edit.Span.Start) - int(startPos.Col-1)
	blockEnd := int(edit.Span.End) + len(file.GetLine(max(endPos.Line, startPos.Line))) - int(endPos.Col-1)
	blockEnd = min(blockEnd, len(file.Content))
	if blockStart < 0 || blockStart > blockEnd {
		return fixEditPreview{}, fmt.Errorf("edit span %s out of range", edit.Span)
	}

	original := string(file.Content[blockStart:blockEnd])
	relStart := int(edit.Span.Start) - blockStart
	relEnd := int(edit.Span.End) - blockStart
	if relStart < 0 || relEnd < relStart || relEnd > len(original) {
		return fixEditPreview{}, fmt.Errorf("edit span %s out of range for preview block", edit.Span)
	}
	after := original[:relStart] + edit.NewText + original[relEnd:]

	return fixEditPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
