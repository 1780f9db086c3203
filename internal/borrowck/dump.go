package borrowck

import (
	"fmt"
	"io"
	"strings"

	"borrowck/internal/mir"
)

// DumpRegions writes every loan of r with the points where it is live,
// consecutive points of a block folded into ranges:
//
//	fn main: 2 loans
//	  L0: & v[0] at bb0[3] held by r1, live bb0[4..6]
func DumpRegions(w io.Writer, r *Result) error {
	if w == nil || r == nil || r.Func == nil {
		return nil
	}
	fn := r.Func
	if _, err := fmt.Fprintf(w, "\nfn %s: %d loans\n", fn.Name, len(r.Loans)); err != nil {
		return err
	}
	for i := range r.Loans {
		loan := &r.Loans[i]
		holder := "_"
		if l := fn.Local(loan.Holder); l != nil {
			holder = l.Name
		}
		var points []mir.Point
		if i < len(r.Regions) {
			points = r.Regions[i].Points
		}
		live := formatPoints(points)
		if live == "" {
			live = "nowhere"
		}
		if _, err := fmt.Fprintf(w, "  L%d: %s %s at %s held by %s, live %s\n",
			loan.ID, loan.Kind, fn.PlaceString(loan.Place), formatPoint(loan.Point), holder, live); err != nil {
			return err
		}
	}
	return nil
}

func formatPoint(p mir.Point) string {
	return fmt.Sprintf("bb%d[%d]", p.Block, p.Index)
}

// formatPoints expects points in program order.
func formatPoints(points []mir.Point) string {
	var parts []string
	for i := 0; i < len(points); {
		j := i
		for j+1 < len(points) && points[j+1].Block == points[i].Block && points[j+1].Index == points[j].Index+1 {
			j++
		}
		if i == j {
			parts = append(parts, formatPoint(points[i]))
		} else {
			parts = append(parts, fmt.Sprintf("bb%d[%d..%d]", points[i].Block, points[i].Index, points[j].Index))
		}
		i = j + 1
	}
	return strings.Join(parts, " ")
}
