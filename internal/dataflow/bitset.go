package dataflow

import "math/bits"

// Bitset is a growable set of small non-negative integers. The zero value is
// an empty set.
type Bitset []uint64

func NewBitset(n int) Bitset {
	return make(Bitset, (n+63)/64)
}

func (s Bitset) Has(i int) bool {
	w := i / 64
	return i >= 0 && w < len(s) && s[w]&(1<<(uint(i)%64)) != 0
}

// Add inserts i and returns the possibly grown set.
func (s Bitset) Add(i int) Bitset {
	if i < 0 {
		return s
	}
	w := i / 64
	for len(s) <= w {
		s = append(s, 0)
	}
	s[w] |= 1 << (uint(i) % 64)
	return s
}

func (s Bitset) Remove(i int) {
	w := i / 64
	if i >= 0 && w < len(s) {
		s[w] &^= 1 << (uint(i) % 64)
	}
}

// Union adds every member of o and returns the possibly grown set.
func (s Bitset) Union(o Bitset) Bitset {
	for len(s) < len(o) {
		s = append(s, 0)
	}
	for i, w := range o {
		s[i] |= w
	}
	return s
}

func (s Bitset) Clone() Bitset {
	if s == nil {
		return nil
	}
	out := make(Bitset, len(s))
	copy(out, s)
	return out
}

// Equal compares membership; trailing empty words are ignored.
func (s Bitset) Equal(o Bitset) bool {
	n := max(len(s), len(o))
	for i := range n {
		var a, b uint64
		if i < len(s) {
			a = s[i]
		}
		if i < len(o) {
			b = o[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

func (s Bitset) Empty() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

func (s Bitset) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every member in increasing order.
func (s Bitset) Each(fn func(int)) {
	for wi, w := range s {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(wi*64 + tz)
			w &^= 1 << uint(tz)
		}
	}
}

// Members lists the set in increasing order.
func (s Bitset) Members() []int {
	out := make([]int, 0, s.Len())
	s.Each(func(i int) { out = append(out, i) })
	return out
}
