// Package protocol defines the JSON messages exchanged with the game server:
// outbound intents and inbound full-state snapshots.
package protocol

import (
	"errors"
	"fmt"

	"github.com/talgya/hexsettlers/internal/board"
)

// ActionType names an intent on the wire.
type ActionType string

const (
	ActionRoad       ActionType = "road"
	ActionSettlement ActionType = "settlement"
	ActionCity       ActionType = "city"
	ActionMoveRobber ActionType = "move_robber"
	ActionEndTurn    ActionType = "end_turn"
	ActionRoll       ActionType = "roll"
	ActionBuyDev     ActionType = "buy_dev"
	ActionPlayDev    ActionType = "play_dev"
)

// DevType is a playable development card.
type DevType string

const (
	DevKnight    DevType = "knight"
	DevMonopoly  DevType = "monopoly"
	DevRoadBuild DevType = "road_build"
	DevInvention DevType = "invention"
)

// ErrUnknownDevType reports a development card name the server does not accept.
var ErrUnknownDevType = errors.New("unknown dev type")

// ParseDevType validates a development card name.
func ParseDevType(name string) (DevType, error) {
	switch d := DevType(name); d {
	case DevKnight, DevMonopoly, DevRoadBuild, DevInvention:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDevType, name)
}

// Intent is one outbound action request. The server may reject it; the next
// snapshot is the only feedback.
type Intent struct {
	ActionType ActionType     `json:"action_type"`
	Kwargs     map[string]any `json:"kwargs"`
}

func intent(t ActionType) Intent {
	return Intent{ActionType: t, Kwargs: map[string]any{}}
}

// Road asks to build a road on edge e.
func Road(topo *board.Topology, e int) (Intent, error) {
	if err := topo.CheckEdge(e); err != nil {
		return Intent{}, err
	}
	in := intent(ActionRoad)
	in.Kwargs["edge_idx"] = e
	return in, nil
}

// Settlement asks to build a settlement on vertex v.
func Settlement(topo *board.Topology, v int) (Intent, error) {
	if err := topo.CheckVertex(v); err != nil {
		return Intent{}, err
	}
	in := intent(ActionSettlement)
	in.Kwargs["node_idx"] = v
	return in, nil
}

// City asks to upgrade the settlement on vertex v.
func City(topo *board.Topology, v int) (Intent, error) {
	if err := topo.CheckVertex(v); err != nil {
		return Intent{}, err
	}
	in := intent(ActionCity)
	in.Kwargs["node_idx"] = v
	return in, nil
}

// MoveRobber asks to move the robber to tile t.
func MoveRobber(topo *board.Topology, t int) (Intent, error) {
	if err := topo.CheckTile(t); err != nil {
		return Intent{}, err
	}
	in := intent(ActionMoveRobber)
	in.Kwargs["tile_idx"] = t
	return in, nil
}

func EndTurn() Intent { return intent(ActionEndTurn) }
func Roll() Intent    { return intent(ActionRoll) }
func BuyDev() Intent  { return intent(ActionBuyDev) }

// PlayDev asks to play a development card.
func PlayDev(d DevType) (Intent, error) {
	if _, err := ParseDevType(string(d)); err != nil {
		return Intent{}, err
	}
	in := intent(ActionPlayDev)
	in.Kwargs["dev_type"] = string(d)
	return in, nil
}
