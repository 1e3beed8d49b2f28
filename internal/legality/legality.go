// Package legality computes where the acting player may currently build.
// The result is an optimistic hint for highlighting; the server decides
// whether an action is accepted.
package legality

import (
	"github.com/talgya/hexsettlers/internal/board"
)

// Phase selects which connectivity rules apply.
type Phase uint8

const (
	// PhaseMain requires new settlements to touch the player's road network.
	PhaseMain Phase = iota
	// PhaseSetup waives connectivity for settlements. Roads follow the same
	// rule in both phases.
	PhaseSetup
)

// Source selects where settlement and road flags come from.
type Source uint8

const (
	// SourceLocal always derives flags from the board.
	SourceLocal Source = iota
	// SourceServerPreferred uses the server's bitmaps for the acting player
	// when the snapshot carries them, and derives locally otherwise.
	SourceServerPreferred
)

// SettlementSpacing is the largest cube distance at which an existing
// structure blocks a new settlement. At the lattice's granularity this is
// exactly the distance between two vertices joined by an edge.
const SettlementSpacing = board.VertexSpacing

// Options tune a computation.
type Options struct {
	Phase  Phase
	Source Source
}

// Map holds one flag per element, indexed like the topology.
type Map struct {
	Player      board.PlayerID
	Roads       []bool // per edge
	Settlements []bool // per vertex
	Cities      []bool // per vertex
	Robber      []bool // per tile

	// Set when the flags were copied from the server's bitmaps instead
	// of derived.
	RoadsFromServer       bool
	SettlementsFromServer bool
}

// Compute returns the legality map for player. It reads topo and s without
// modifying them; equal inputs give equal maps. An empty player gets a map
// with every flag false.
func Compute(topo *board.Topology, s *board.State, player board.PlayerID, opts Options) Map {
	m := Map{
		Player:      player,
		Roads:       make([]bool, topo.NumEdges()),
		Settlements: make([]bool, topo.NumVertices()),
		Cities:      make([]bool, topo.NumVertices()),
		Robber:      make([]bool, topo.NumTiles()),
	}
	if player == "" {
		return m
	}
	c := checker{topo: topo, s: s, player: player, phase: opts.Phase}

	if opts.Source == SourceServerPreferred {
		c.copyServer(&m)
	}
	if !m.RoadsFromServer {
		for e := range m.Roads {
			m.Roads[e] = c.road(e)
		}
	}
	if !m.SettlementsFromServer {
		for v := range m.Settlements {
			m.Settlements[v] = c.settlement(v)
		}
	}
	for v := range m.Cities {
		m.Cities[v] = c.city(v)
	}
	for t := range m.Robber {
		m.Robber[t] = t != s.Robber
	}
	return m
}

// Road reports whether player may place a road on edge e.
func Road(topo *board.Topology, s *board.State, player board.PlayerID, e int) (bool, error) {
	if err := topo.CheckEdge(e); err != nil {
		return false, err
	}
	c := checker{topo: topo, s: s, player: player}
	return c.road(e), nil
}

// Settlement reports whether player may place a settlement on vertex v.
func Settlement(topo *board.Topology, s *board.State, player board.PlayerID, phase Phase, v int) (bool, error) {
	if err := topo.CheckVertex(v); err != nil {
		return false, err
	}
	c := checker{topo: topo, s: s, player: player, phase: phase}
	return c.settlement(v), nil
}

// City reports whether player may upgrade vertex v to a city.
func City(topo *board.Topology, s *board.State, player board.PlayerID, v int) (bool, error) {
	if err := topo.CheckVertex(v); err != nil {
		return false, err
	}
	c := checker{topo: topo, s: s, player: player}
	return c.city(v), nil
}

// RobberTile reports whether the robber may move to tile t. Only staying
// put is ruled out here.
func RobberTile(topo *board.Topology, s *board.State, t int) (bool, error) {
	if err := topo.CheckTile(t); err != nil {
		return false, err
	}
	return t != s.Robber, nil
}

// Count returns how many flags are set in each map.
func (m Map) Count() (roads, settlements, cities, robber int) {
	return countTrue(m.Roads), countTrue(m.Settlements), countTrue(m.Cities), countTrue(m.Robber)
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
