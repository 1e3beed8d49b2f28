package board

import "fmt"

// Violation describes one element that changed between two snapshots in a
// way the game never allows.
type Violation struct {
	Element string // "node" or "edge"
	Index   int
	Before  string
	After   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %d: %s -> %s", v.Element, v.Index, v.Before, v.After)
}

// CheckProgression compares consecutive snapshots. A node only moves
// none -> settlement -> city and keeps its first owner; a road, once owned,
// is never removed or transferred. Both states must be aligned with the
// same topology.
func CheckProgression(prev, next *State) []Violation {
	var out []Violation

	n := min(len(prev.Nodes), len(next.Nodes))
	for i := 0; i < n; i++ {
		a, b := prev.Nodes[i], next.Nodes[i]
		if b.Rank < a.Rank || (a.Occupied() && b.Owner != a.Owner) {
			out = append(out, Violation{
				Element: "node",
				Index:   i,
				Before:  describeOccupant(a),
				After:   describeOccupant(b),
			})
		}
	}

	n = min(len(prev.EdgeOwner), len(next.EdgeOwner))
	for i := 0; i < n; i++ {
		a, b := prev.EdgeOwner[i], next.EdgeOwner[i]
		if a != "" && a != b {
			out = append(out, Violation{
				Element: "edge",
				Index:   i,
				Before:  string(a),
				After:   describeOwner(b),
			})
		}
	}
	return out
}

func describeOccupant(o Occupant) string {
	if !o.Occupied() {
		return "empty"
	}
	return fmt.Sprintf("%s %s", o.Owner, o.Rank)
}

func describeOwner(p PlayerID) string {
	if p == "" {
		return "empty"
	}
	return string(p)
}
