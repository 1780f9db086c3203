package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// increment when cachedFile changes shape
const diskCacheSchemaVersion uint16 = 1

// Digest identifies a cache entry.
type Digest [32]byte

// DiskCache stores the diagnostics of checked files keyed by content and
// options. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type cachedFile struct {
	Schema uint16       `msgpack:"schema"`
	Diags  []cachedDiag `msgpack:"diags"`
	Drops  int          `msgpack:"dropped,omitempty"`
}

type cachedSpan struct {
	Start uint32 `msgpack:"s"`
	End   uint32 `msgpack:"e"`
}

type cachedNote struct {
	Span cachedSpan `msgpack:"span"`
	Msg  string     `msgpack:"msg"`
}

type cachedEdit struct {
	Span    cachedSpan `msgpack:"span"`
	NewText string     `msgpack:"new"`
	OldText string     `msgpack:"old,omitempty"`
}

type cachedFix struct {
	Title         string       `msgpack:"title"`
	Applicability uint8        `msgpack:"app"`
	Edits         []cachedEdit `msgpack:"edits"`
}

type cachedDiag struct {
	Severity uint8        `msgpack:"sev"`
	Code     uint16       `msgpack:"code"`
	Message  string       `msgpack:"msg"`
	Primary  cachedSpan   `msgpack:"span"`
	Notes    []cachedNote `msgpack:"notes,omitempty"`
	Fixes    []cachedFix  `msgpack:"fixes,omitempty"`
}

// OpenDiskCache opens (creating if needed) a cache rooted at dir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// DefaultCacheDir is $XDG_CACHE_HOME/app, falling back to ~/.cache/app.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// two-level fan-out keeps directories small
	return filepath.Join(c.dir, hexKey[:2], hexKey[2:]+".mp")
}

// cacheKey covers everything that can change the diagnostics of a file.
func cacheKey(file *source.File, opts *Options) Digest {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint16(buf[:2], diskCacheSchemaVersion)
	h.Write(buf[:2])
	h.Write(file.Hash[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(max(opts.Borrow.MaxIterations, 0))) //nolint:gosec // clamped
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(max(opts.MaxDiagnostics, 0))) //nolint:gosec // clamped
	h.Write(buf[:])
	if opts.Borrow.SplitConstantIndices {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// put writes entry atomically: a temp file renamed over the final path.
func (c *DiskCache) put(key Digest, entry *cachedFile) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	// Атомарная замена
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// get returns false without error on a miss or a stale schema.
func (c *DiskCache) get(key Digest) (*cachedFile, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var entry cachedFile
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

func toCached(bag *diag.Bag) *cachedFile {
	entry := &cachedFile{Schema: diskCacheSchemaVersion, Drops: bag.Dropped()}
	for _, d := range bag.Items() {
		cd := cachedDiag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Primary:  spanOut(d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, cachedNote{Span: spanOut(n.Span), Msg: n.Msg})
		}
		for _, fix := range d.Fixes {
			cf := cachedFix{Title: fix.Title, Applicability: uint8(fix.Applicability)}
			for _, e := range fix.Edits {
				cf.Edits = append(cf.Edits, cachedEdit{Span: spanOut(e.Span), NewText: e.NewText, OldText: e.OldText})
			}
			cd.Fixes = append(cd.Fixes, cf)
		}
		entry.Diags = append(entry.Diags, cd)
	}
	return entry
}

// restore rebuilds the bag for a file now registered as id. The bag limit
// is part of the key, so replaying never drops anything new.
func (e *cachedFile) restore(id source.FileID, max int) *diag.Bag {
	bag := diag.NewBag(max)
	bag.AddDropped(e.Drops)
	for _, cd := range e.Diags {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), cd.Primary.in(id), cd.Message)
		for _, n := range cd.Notes {
			d.WithNote(n.Span.in(id), n.Msg)
		}
		for _, cf := range cd.Fixes {
			fix := &diag.Fix{Title: cf.Title, Applicability: diag.FixApplicability(cf.Applicability)}
			for _, ce := range cf.Edits {
				fix.Edits = append(fix.Edits, diag.FixEdit{Span: ce.Span.in(id), NewText: ce.NewText, OldText: ce.OldText})
			}
			d.WithFixSuggestion(fix)
		}
		bag.Add(d)
	}
	return bag
}

func spanOut(sp source.Span) cachedSpan {
	return cachedSpan{Start: sp.Start, End: sp.End}
}

func (s cachedSpan) in(id source.FileID) source.Span {
	return source.Span{File: id, Start: s.Start, End: s.End}
}
