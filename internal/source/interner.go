package source

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

type StringID uint32

const NoStringID StringID = 0

// Interner maps identifier text to compact IDs. It is safe for concurrent use.
type Interner struct {
	mu    sync.RWMutex
	byID  []string // byID[0] = "" for NoStringID
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": NoStringID},
	}
}

// Intern returns the ID of s, inserting it if needed.
func (i *Interner) Intern(s string) StringID {
	i.mu.RLock()
	id, ok := i.index[s]
	i.mu.RUnlock()
	if ok {
		return id
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.index[s]; ok {
		return id
	}
	// own copy so the caller's buffer can be reused
	cpy := string([]byte(s))
	n, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("interner overflow: %w", err))
	}
	id = StringID(n)
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup returns the string for id, or "" and false if id is unknown.
func (i *Interner) Lookup(id StringID) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("invalid string ID %d", id))
	}
	return s
}
