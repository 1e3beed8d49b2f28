package board

import (
	"fmt"
	"maps"
	"slices"
)

// PlayerID identifies a player. The server uses player names.
type PlayerID string

// Resource is the kind a tile produces.
type Resource uint8

const (
	ResourceDesert Resource = iota // Produces nothing; the robber starts here
	ResourceBrick
	ResourceWood
	ResourceWool
	ResourceWheat
	ResourceOre
)

var resourceNames = [...]string{"desert", "brick", "wood", "wool", "wheat", "ore"}

// ResourceName returns the wire name of a resource.
func ResourceName(r Resource) string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return "unknown"
}

// ParseResource maps a wire name back to a Resource.
func ParseResource(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), true
		}
	}
	return 0, false
}

// Rank is the size of the structure on a vertex.
type Rank uint8

const (
	RankNone Rank = iota
	RankSettlement
	RankCity
)

func (r Rank) String() string {
	switch r {
	case RankNone:
		return "none"
	case RankSettlement:
		return "settlement"
	case RankCity:
		return "city"
	default:
		return fmt.Sprintf("rank(%d)", uint8(r))
	}
}

// Occupant is the structure on a vertex. The zero value is an empty vertex.
type Occupant struct {
	Owner PlayerID `json:"owner,omitempty"`
	Rank  Rank     `json:"rank"`
}

// Occupied reports whether a structure stands on the vertex.
func (o Occupant) Occupied() bool {
	return o.Rank != RankNone
}

// TileContent is what a tile holds. Number 0 means no token.
type TileContent struct {
	Resource Resource `json:"resource"`
	Number   int      `json:"number"`
}

// PlayerState holds per-player counts from the snapshot. The availability
// bitmaps are nil unless the server computed them.
type PlayerState struct {
	Resources            map[Resource]int `json:"resources,omitempty"`
	DevCards             map[string]int   `json:"dev_cards,omitempty"`
	AvailableRoads       []bool           `json:"available_roads,omitempty"`
	AvailableSettlements []bool           `json:"available_settlements,omitempty"`
}

// State is one authoritative board snapshot. A new snapshot replaces the
// previous State as a whole; nothing patches it field by field.
type State struct {
	PlayerOrder    []PlayerID
	CurrentPlayer  PlayerID
	ExpectedAction string
	InitialBuild   bool // initial placement rounds are in progress

	Tiles     []TileContent
	Robber    int
	EdgeOwner []PlayerID // "" = no road
	Nodes     []Occupant

	Players map[PlayerID]PlayerState
	Info    []string
}

// NewState returns an empty board aligned with t: no roads, no structures,
// robber on tile 0.
func NewState(t *Topology) *State {
	return &State{
		Tiles:     make([]TileContent, len(t.Tiles)),
		EdgeOwner: make([]PlayerID, len(t.Edges)),
		Nodes:     make([]Occupant, len(t.Vertices)),
		Players:   make(map[PlayerID]PlayerState),
	}
}

// Validate checks that s is index-aligned with t and internally consistent.
func (s *State) Validate(t *Topology) error {
	if len(s.Tiles) != len(t.Tiles) {
		return fmt.Errorf("tiles: got %d, topology has %d", len(s.Tiles), len(t.Tiles))
	}
	if len(s.EdgeOwner) != len(t.Edges) {
		return fmt.Errorf("edges: got %d, topology has %d", len(s.EdgeOwner), len(t.Edges))
	}
	if len(s.Nodes) != len(t.Vertices) {
		return fmt.Errorf("nodes: got %d, topology has %d", len(s.Nodes), len(t.Vertices))
	}
	if err := t.CheckTile(s.Robber); err != nil {
		return fmt.Errorf("robber: %w", err)
	}
	for i, tc := range s.Tiles {
		if int(tc.Resource) >= len(resourceNames) {
			return fmt.Errorf("tile %d: unknown resource %d", i, tc.Resource)
		}
	}
	for i, n := range s.Nodes {
		switch {
		case n.Rank > RankCity:
			return fmt.Errorf("node %d: unknown rank %d", i, n.Rank)
		case n.Rank == RankNone && n.Owner != "":
			return fmt.Errorf("node %d: owner %q without a structure", i, n.Owner)
		case n.Rank != RankNone && n.Owner == "":
			return fmt.Errorf("node %d: %s without an owner", i, n.Rank)
		}
	}
	for id, ps := range s.Players {
		if ps.AvailableRoads != nil && len(ps.AvailableRoads) != len(t.Edges) {
			return fmt.Errorf("player %s: available roads: got %d, topology has %d", id, len(ps.AvailableRoads), len(t.Edges))
		}
		if ps.AvailableSettlements != nil && len(ps.AvailableSettlements) != len(t.Vertices) {
			return fmt.Errorf("player %s: available settlements: got %d, topology has %d", id, len(ps.AvailableSettlements), len(t.Vertices))
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.PlayerOrder = slices.Clone(s.PlayerOrder)
	c.Tiles = slices.Clone(s.Tiles)
	c.EdgeOwner = slices.Clone(s.EdgeOwner)
	c.Nodes = slices.Clone(s.Nodes)
	c.Info = slices.Clone(s.Info)
	c.Players = make(map[PlayerID]PlayerState, len(s.Players))
	for id, ps := range s.Players {
		c.Players[id] = PlayerState{
			Resources:            maps.Clone(ps.Resources),
			DevCards:             maps.Clone(ps.DevCards),
			AvailableRoads:       slices.Clone(ps.AvailableRoads),
			AvailableSettlements: slices.Clone(ps.AvailableSettlements),
		}
	}
	return &c
}

// RoadsOf returns the edges owned by p, in index order.
func (s *State) RoadsOf(p PlayerID) []int {
	var out []int
	for i, owner := range s.EdgeOwner {
		if owner == p && p != "" {
			out = append(out, i)
		}
	}
	return out
}

// StructuresOf returns the vertices occupied by p, in index order.
func (s *State) StructuresOf(p PlayerID) []int {
	var out []int
	for i, n := range s.Nodes {
		if n.Occupied() && n.Owner == p {
			out = append(out, i)
		}
	}
	return out
}
