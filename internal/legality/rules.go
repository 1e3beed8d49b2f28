package legality

import (
	"github.com/talgya/hexsettlers/internal/board"
)

// checker evaluates the placement rules for one player against one snapshot.
type checker struct {
	topo   *board.Topology
	s      *board.State
	player board.PlayerID
	phase  Phase

	occupied []int // lazily collected occupied vertices
	scanned  bool
}

// settlement applies the distance rule, then (outside setup) connectivity.
func (c *checker) settlement(v int) bool {
	if c.player == "" || c.s.Nodes[v].Occupied() {
		return false
	}
	at := c.topo.Vertices[v]
	for _, u := range c.occupiedVertices() {
		if board.Distance(at, c.topo.Vertices[u]) <= SettlementSpacing {
			return false
		}
	}
	if c.phase == PhaseSetup {
		return true
	}
	for _, e := range c.topo.IncidentEdges(v) {
		if c.s.EdgeOwner[e] == c.player {
			return true
		}
	}
	return false
}

// road requires an unowned edge touching the player's structure or extending
// the player's network through a vertex no opponent occupies.
func (c *checker) road(e int) bool {
	if c.player == "" || c.s.EdgeOwner[e] != "" {
		return false
	}
	ends := c.topo.Edges[e]
	for _, v := range ends {
		if c.ownsStructure(v) {
			return true
		}
	}
	for _, v := range ends {
		if occ := c.s.Nodes[v]; occ.Occupied() && occ.Owner != c.player {
			continue
		}
		for _, adj := range c.topo.IncidentEdges(v) {
			if adj != e && c.s.EdgeOwner[adj] == c.player {
				return true
			}
		}
	}
	return false
}

// city allows upgrading the player's own settlement only.
func (c *checker) city(v int) bool {
	occ := c.s.Nodes[v]
	return c.player != "" && occ.Rank == board.RankSettlement && occ.Owner == c.player
}

func (c *checker) ownsStructure(v int) bool {
	occ := c.s.Nodes[v]
	return occ.Occupied() && occ.Owner == c.player
}

func (c *checker) occupiedVertices() []int {
	if !c.scanned {
		for v, occ := range c.s.Nodes {
			if occ.Occupied() {
				c.occupied = append(c.occupied, v)
			}
		}
		c.scanned = true
	}
	return c.occupied
}

// copyServer takes the acting player's bitmaps from the snapshot when they
// are present and sized for this topology.
func (c *checker) copyServer(m *Map) {
	ps, ok := c.s.Players[c.player]
	if !ok {
		return
	}
	if len(ps.AvailableRoads) == len(m.Roads) {
		copy(m.Roads, ps.AvailableRoads)
		m.RoadsFromServer = true
	}
	if len(ps.AvailableSettlements) == len(m.Settlements) {
		copy(m.Settlements, ps.AvailableSettlements)
		m.SettlementsFromServer = true
	}
}
