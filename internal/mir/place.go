package mir

import (
	"strconv"
	"strings"
)

type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
	PlaceProjIndex
)

type PlaceProj struct {
	Kind PlaceProjKind

	FieldName string
	// ConstIndex is set when the index is an integer literal.
	ConstIndex    int64
	HasConstIndex bool
}

// Place is an assignable location: a local followed by projections.
type Place struct {
	Local LocalID
	Proj  []PlaceProj
}

func LocalPlace(id LocalID) Place {
	return Place{Local: id}
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID
}

// IsLocal reports whether the place is a whole local without projections.
func (p Place) IsLocal() bool {
	return len(p.Proj) == 0
}

// HasDeref reports whether the place reaches through a reference.
func (p Place) HasDeref() bool {
	for _, proj := range p.Proj {
		if proj.Kind == PlaceProjDeref {
			return true
		}
	}
	return false
}

// Project returns a copy of p extended by proj.
func (p Place) Project(proj PlaceProj) Place {
	out := Place{Local: p.Local, Proj: make([]PlaceProj, 0, len(p.Proj)+1)}
	out.Proj = append(out.Proj, p.Proj...)
	out.Proj = append(out.Proj, proj)
	return out
}

func (p Place) Deref() Place {
	return p.Project(PlaceProj{Kind: PlaceProjDeref})
}

func (p Place) Field(name string) Place {
	return p.Project(PlaceProj{Kind: PlaceProjField, FieldName: name})
}

func (p Place) Index() Place {
	return p.Project(PlaceProj{Kind: PlaceProjIndex})
}

func (p Place) ConstIndex(v int64) Place {
	return p.Project(PlaceProj{Kind: PlaceProjIndex, ConstIndex: v, HasConstIndex: true})
}

func (p Place) Equal(o Place) bool {
	if p.Local != o.Local || len(p.Proj) != len(o.Proj) {
		return false
	}
	for i := range p.Proj {
		if !projEqual(p.Proj[i], o.Proj[i]) {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether p is o or an ancestor of o.
func (p Place) IsPrefixOf(o Place) bool {
	if p.Local != o.Local || len(p.Proj) > len(o.Proj) {
		return false
	}
	for i := range p.Proj {
		if !projEqual(p.Proj[i], o.Proj[i]) {
			return false
		}
	}
	return true
}

func projEqual(a, b PlaceProj) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PlaceProjField:
		return a.FieldName == b.FieldName
	case PlaceProjIndex:
		return a.HasConstIndex == b.HasConstIndex && a.ConstIndex == b.ConstIndex
	default:
		return true
	}
}

// ConflictPolicy selects how index projections compare.
type ConflictPolicy struct {
	// SplitConstantIndices makes v[0] and v[1] disjoint. Off by default:
	// index values are not tracked, so all indices into a base overlap.
	SplitConstantIndices bool
}

// Conflicts reports whether p1 and p2 may denote overlapping storage:
// equal paths, or one a prefix of the other.
func (c ConflictPolicy) Conflicts(p1, p2 Place) bool {
	if p1.Local != p2.Local {
		return false
	}
	n := min(len(p1.Proj), len(p2.Proj))
	for i := range n {
		a, b := p1.Proj[i], p2.Proj[i]
		if c.siblingsDisjoint(a, b) {
			return false
		}
		if a.Kind != b.Kind {
			// deref vs field etc. of the same base: treat as overlapping
			return true
		}
	}
	return true
}

// DisjointSiblings reports whether p1 and p2 share a prefix and then diverge
// through sibling steps that never overlap, such as s.a and s.b.
func (c ConflictPolicy) DisjointSiblings(p1, p2 Place) bool {
	if p1.Local != p2.Local {
		return false
	}
	n := min(len(p1.Proj), len(p2.Proj))
	for i := range n {
		a, b := p1.Proj[i], p2.Proj[i]
		if c.siblingsDisjoint(a, b) {
			return true
		}
		if !projEqual(a, b) {
			return false
		}
	}
	return false
}

func (c ConflictPolicy) siblingsDisjoint(a, b PlaceProj) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PlaceProjField:
		return a.FieldName != b.FieldName
	case PlaceProjIndex:
		return c.SplitConstantIndices && a.HasConstIndex && b.HasConstIndex && a.ConstIndex != b.ConstIndex
	default:
		return false
	}
}

// Conflicts uses the default conservative policy.
func Conflicts(p1, p2 Place) bool {
	return ConflictPolicy{}.Conflicts(p1, p2)
}

// DisjointSiblings uses the default conservative policy.
func DisjointSiblings(p1, p2 Place) bool {
	return ConflictPolicy{}.DisjointSiblings(p1, p2)
}

// PlaceString renders p with local names: v[_], s.f, *r.
// A deref followed by a field or index is implicit, as in self.items.
func (f *Func) PlaceString(p Place) string {
	name := "_"
	if f != nil && int(p.Local) >= 0 && int(p.Local) < len(f.Locals) {
		name = f.Locals[p.Local].Name
	}
	var sb strings.Builder
	sb.WriteString(name)
	derefs := 0
	for i, proj := range p.Proj {
		switch proj.Kind {
		case PlaceProjDeref:
			if i == len(p.Proj)-1 {
				derefs++
			}
		case PlaceProjField:
			sb.WriteByte('.')
			sb.WriteString(proj.FieldName)
		case PlaceProjIndex:
			if proj.HasConstIndex {
				sb.WriteByte('[')
				sb.WriteString(strconv.FormatInt(proj.ConstIndex, 10))
				sb.WriteByte(']')
			} else {
				sb.WriteString("[_]")
			}
		}
	}
	return strings.Repeat("*", derefs) + sb.String()
}
