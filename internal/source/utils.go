package source

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// normalizeCRLF replaces every \r\n with \n and leaves lone \r alone.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !slices.Contains(content, '\r') {
		return content, false
	}

	out := make([]byte, 0, len(content))
	changed := false
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' && i+1 < len(content) && content[i+1] == '\n' {
			out = append(out, '\n')
			i++
			changed = true
			continue
		}
		out = append(out, content[i])
	}
	return out, changed
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, 16)
	for i, b := range content {
		if b != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("line offset overflow: %w", err))
		}
		out = append(out, off)
	}
	return out
}

// toLineCol resolves a byte offset with a binary search over newline offsets.
func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// number of newlines strictly before off
	n, _ := slices.BinarySearch(lineIdx, off)
	var lineStart uint32
	if n > 0 {
		lineStart = lineIdx[n-1] + 1
	}
	line, err := safecast.Conv[uint32](n + 1)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return LineCol{Line: line, Col: off - lineStart + 1}
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// AbsolutePath returns the normalized absolute form of path.
func AbsolutePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return normalizePath(abs), nil
}

// RelativePath returns path relative to baseDir, falling back to the absolute
// path when it lies outside baseDir.
func RelativePath(path, baseDir string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return normalizePath(absPath), nil
	}
	return normalizePath(rel), nil
}

func BaseName(path string) string {
	return filepath.Base(path)
}
