package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files and provides offset resolution.
type FileSet struct {
	files   []File
	index   map[string]FileID // path -> latest id
	baseDir string
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// NewFileSetWithBase creates a FileSet that renders paths relative to baseDir.
func NewFileSetWithBase(baseDir string) *FileSet {
	fs := NewFileSet()
	fs.baseDir = baseDir
	return fs
}

func (fileSet *FileSet) SetBaseDir(dir string) {
	fileSet.baseDir = dir
}

// BaseDir returns the configured base directory or the working directory.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// Add stores normalized bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if the path is already known.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	normalizedPath := normalizePath(path)

	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, flags := Normalize(content)
	return fileSet.Add(path, content, flags), nil
}

// Normalize strips a UTF-8 BOM and folds CRLF line endings.
func Normalize(content []byte) ([]byte, FileFlags) {
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)
	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	content, flags := Normalize(content)
	return fileSet.Add(name, content, flags|FileVirtual)
}

func (fileSet *FileSet) Get(id FileID) *File {
	return &fileSet.files[id]
}

func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := &fileSet.files[span.File]
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Text returns the source bytes covered by span.
func (fileSet *FileSet) Text(span Span) string {
	f := &fileSet.files[span.File]
	end := min(int(span.End), len(f.Content))
	start := min(int(span.Start), end)
	return string(f.Content[start:end])
}

// GetLine returns the 1-based line lineNum without its newline, or "".
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	idx := int(lineNum) - 1
	var start int
	switch {
	case idx == 0:
		start = 0
	case idx-1 < len(f.LineIdx):
		start = int(f.LineIdx[idx-1]) + 1
	default:
		return ""
	}
	end := len(f.Content)
	if idx < len(f.LineIdx) {
		end = int(f.LineIdx[idx])
	}
	if start > len(f.Content) || start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// FormatPath renders the path in one of the modes absolute, relative, basename or auto.
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
	case "basename":
		return BaseName(f.Path)
	case "auto":
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return BaseName(f.Path)
	}
	return f.Path
}
