package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talgya/hexsettlers/internal/board"
)

// ErrMalformedSnapshot reports an inbound message that does not have the
// snapshot shape. The caller keeps its previous state.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the wire form of a full game state.
type Snapshot struct {
	PlayerNames    []string              `json:"player_names"`
	CurPlayer      string                `json:"cur_player"`
	ExpectedAction *Label                `json:"expected_action"`
	InitialBuild   bool                  `json:"is_initial_build_phase,omitempty"`
	Board          *BoardWire            `json:"board"`
	Players        map[string]PlayerWire `json:"players"`
	Info           []string              `json:"info,omitempty"`
}

// BoardWire is the board section of a snapshot.
type BoardWire struct {
	Tiles      []TileWire `json:"tiles"`
	Edges      []*string  `json:"edges"`
	Nodes      []NodeWire `json:"nodes"`
	RobberTile *int       `json:"robber_tile"`
}

// TileWire is one tile. A desert carries number -1 or 0.
type TileWire struct {
	Resource string `json:"resource"`
	Number   int    `json:"number"`
}

// NodeWire is one vertex: value 0 empty, 1 settlement, 2 city.
type NodeWire struct {
	Player *string `json:"player"`
	Value  int     `json:"value"`
}

// PlayerWire holds one player's counts. The bitmaps appear only in later
// protocol revisions.
type PlayerWire struct {
	Resources            map[string]int `json:"resources,omitempty"`
	DevCards             map[string]int `json:"dev_cards,omitempty"`
	AvailableRoads       Bitmap         `json:"available_roads,omitempty"`
	AvailableSettlements Bitmap         `json:"available_settlements,omitempty"`
}

// Bitmap decodes a JSON array of booleans or 0/1 numbers.
type Bitmap []bool

func (b *Bitmap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch string(bytes.TrimSpace(r)) {
		case "true", "1":
			out[i] = true
		case "false", "0":
		default:
			return fmt.Errorf("bitmap[%d]: unexpected %s", i, r)
		}
	}
	*b = out
	return nil
}

// Label is a string that the server may also send as a number (older
// revisions sent enum values). Known enum values decode to their names;
// unknown ones keep their digits.
type Label string

// actionNames maps the server's numeric action enum to its names.
var actionNames = map[string]string{
	"0": "end_turn",
	"1": "structure",
	"2": "road",
	"3": "play_dev",
	"4": "buy_dev",
	"5": "roll",
	"6": "bank_trade",
	"7": "player_trade",
	"8": "move_robber",
	"9": "steal",
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("label: %w", err)
	}
	if name, ok := actionNames[n.String()]; ok {
		*l = Label(name)
		return nil
	}
	*l = Label(n.String())
	return nil
}

// DecodeSnapshot parses and validates a snapshot against topo. Any failure
// wraps ErrMalformedSnapshot; nothing from a failed message is returned.
func DecodeSnapshot(data []byte, topo *board.Topology) (*board.State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	s, err := snap.State(topo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return s, nil
}

// State converts the wire form into a validated board state.
func (snap *Snapshot) State(topo *board.Topology) (*board.State, error) {
	if snap.Board == nil {
		return nil, errors.New("missing board")
	}
	if snap.Board.RobberTile == nil {
		return nil, errors.New("missing robber_tile")
	}

	s := &board.State{
		CurrentPlayer: board.PlayerID(snap.CurPlayer),
		InitialBuild:  snap.InitialBuild,
		Tiles:         make([]board.TileContent, len(snap.Board.Tiles)),
		Robber:        *snap.Board.RobberTile,
		EdgeOwner:     make([]board.PlayerID, len(snap.Board.Edges)),
		Nodes:         make([]board.Occupant, len(snap.Board.Nodes)),
		Players:       make(map[board.PlayerID]board.PlayerState, len(snap.Players)),
		Info:          snap.Info,
	}
	if snap.ExpectedAction != nil {
		s.ExpectedAction = string(*snap.ExpectedAction)
	}

	known := make(map[board.PlayerID]bool, len(snap.PlayerNames))
	for _, name := range snap.PlayerNames {
		id := board.PlayerID(name)
		known[id] = true
		s.PlayerOrder = append(s.PlayerOrder, id)
	}
	if s.CurrentPlayer != "" && len(known) > 0 && !known[s.CurrentPlayer] {
		return nil, fmt.Errorf("cur_player %q not among players", s.CurrentPlayer)
	}

	for i, t := range snap.Board.Tiles {
		r, ok := board.ParseResource(t.Resource)
		if !ok {
			return nil, fmt.Errorf("tile %d: unknown resource %q", i, t.Resource)
		}
		n := t.Number
		if n < 0 {
			n = 0
		}
		s.Tiles[i] = board.TileContent{Resource: r, Number: n}
	}
	for i, owner := range snap.Board.Edges {
		if owner != nil {
			s.EdgeOwner[i] = board.PlayerID(*owner)
		}
	}
	for i, n := range snap.Board.Nodes {
		if n.Value < int(board.RankNone) || n.Value > int(board.RankCity) {
			return nil, fmt.Errorf("node %d: value %d", i, n.Value)
		}
		occ := board.Occupant{Rank: board.Rank(n.Value)}
		if n.Player != nil {
			occ.Owner = board.PlayerID(*n.Player)
		}
		s.Nodes[i] = occ
	}

	for name, p := range snap.Players {
		ps := board.PlayerState{
			DevCards:             p.DevCards,
			AvailableRoads:       []bool(p.AvailableRoads),
			AvailableSettlements: []bool(p.AvailableSettlements),
		}
		if len(p.Resources) > 0 {
			ps.Resources = make(map[board.Resource]int, len(p.Resources))
			for k, v := range p.Resources {
				r, ok := board.ParseResource(k)
				if !ok {
					return nil, fmt.Errorf("player %s: unknown resource %q", name, k)
				}
				ps.Resources[r] = v
			}
		}
		s.Players[board.PlayerID(name)] = ps
	}

	if err := s.Validate(topo); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeSnapshot renders a state in wire form. The fake servers in tests and
// the journal replay tool use it.
func EncodeSnapshot(s *board.State) ([]byte, error) {
	robber := s.Robber
	snap := Snapshot{
		CurPlayer:    string(s.CurrentPlayer),
		InitialBuild: s.InitialBuild,
		Board: &BoardWire{
			Tiles:      make([]TileWire, len(s.Tiles)),
			Edges:      make([]*string, len(s.EdgeOwner)),
			Nodes:      make([]NodeWire, len(s.Nodes)),
			RobberTile: &robber,
		},
		Players: make(map[string]PlayerWire, len(s.Players)),
		Info:    s.Info,
	}
	for _, id := range s.PlayerOrder {
		snap.PlayerNames = append(snap.PlayerNames, string(id))
	}
	if s.ExpectedAction != "" {
		l := Label(s.ExpectedAction)
		snap.ExpectedAction = &l
	}
	for i, t := range s.Tiles {
		n := t.Number
		if t.Resource == board.ResourceDesert {
			n = -1
		}
		snap.Board.Tiles[i] = TileWire{Resource: board.ResourceName(t.Resource), Number: n}
	}
	for i, owner := range s.EdgeOwner {
		if owner != "" {
			o := string(owner)
			snap.Board.Edges[i] = &o
		}
	}
	for i, n := range s.Nodes {
		nw := NodeWire{Value: int(n.Rank)}
		if n.Occupied() {
			o := string(n.Owner)
			nw.Player = &o
		}
		snap.Board.Nodes[i] = nw
	}
	for id, ps := range s.Players {
		pw := PlayerWire{
			DevCards:             ps.DevCards,
			AvailableRoads:       Bitmap(ps.AvailableRoads),
			AvailableSettlements: Bitmap(ps.AvailableSettlements),
		}
		if len(ps.Resources) > 0 {
			pw.Resources = make(map[string]int, len(ps.Resources))
			for r, v := range ps.Resources {
				pw.Resources[board.ResourceName(r)] = v
			}
		}
		snap.Players[string(id)] = pw
	}
	return json.Marshal(snap)
}
