package borrowck

import (
	"slices"

	"borrowck/internal/dataflow"
	"borrowck/internal/mir"
)

// Region is the set of points at which a loan is live, in program order.
type Region struct {
	Loan   LoanID
	Points []mir.Point
}

func (r *Region) Contains(p mir.Point) bool {
	_, found := slices.BinarySearchFunc(r.Points, p, comparePoints)
	return found
}

func comparePoints(a, b mir.Point) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// liveLoans derives the loans live on entry to every point: those held by a
// local that is live there.
func liveLoans(holds map[mir.Point]holdsState, live map[mir.Point]dataflow.Bitset) map[mir.Point]dataflow.Bitset {
	out := make(map[mir.Point]dataflow.Bitset, len(holds))
	for p, hs := range holds {
		var set dataflow.Bitset
		live[p].Each(func(local int) {
			if local < len(hs) {
				set = set.Union(hs[local])
			}
		})
		out[p] = set
	}
	return out
}

func buildRegions(n int, live map[mir.Point]dataflow.Bitset) []Region {
	regions := make([]Region, n)
	for i := range regions {
		regions[i].Loan = LoanID(i) //nolint:gosec // bounded by the loan table
	}
	for p, set := range live {
		set.Each(func(id int) {
			if id < n {
				regions[id].Points = append(regions[id].Points, p)
			}
		})
	}
	for i := range regions {
		slices.SortFunc(regions[i].Points, comparePoints)
	}
	return regions
}
