// Package client holds the application state of the game client: the
// selected building tool, the last confirmed board and the legality map
// derived from it. All mutation happens on one goroutine, the Session loop.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/legality"
	"github.com/talgya/hexsettlers/internal/protocol"
)

var (
	// ErrNoTool reports a board click with no building tool selected.
	ErrNoTool = errors.New("no tool selected")
	// ErrWrongTarget reports a click on an element the selected tool cannot use.
	ErrWrongTarget = errors.New("tool does not apply to this target")
	// ErrNotConnected reports an action while no board is cached.
	ErrNotConnected = errors.New("not connected")
)

// Tool is the building tool the player has selected.
type Tool uint8

const (
	ToolNone Tool = iota
	ToolRoad
	ToolSettlement
	ToolCity
	ToolRobber
)

var toolNames = [...]string{"none", "road", "settlement", "city", "robber"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("tool(%d)", uint8(t))
}

// ParseTool maps a tool name back to a Tool.
func ParseTool(name string) (Tool, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range toolNames {
		if n == name {
			return Tool(i), true
		}
	}
	return ToolNone, false
}

// SetupMode controls whether settlement connectivity is waived.
type SetupMode uint8

const (
	// SetupAuto follows the snapshot: the initial-build flag, or an expected
	// settlement placement.
	SetupAuto SetupMode = iota
	SetupOn
	SetupOff
)

// ParseSetupMode accepts auto, on or off.
func ParseSetupMode(s string) (SetupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SetupAuto, nil
	case "on", "true", "1":
		return SetupOn, nil
	case "off", "false", "0":
		return SetupOff, nil
	}
	return SetupAuto, fmt.Errorf("setup mode %q: want auto, on or off", s)
}

// Options configure a State.
type Options struct {
	Source legality.Source
	Setup  SetupMode
}

// State is the client's view of the game. It is not safe for concurrent use.
type State struct {
	topo   *board.Topology
	player board.PlayerID
	opts   Options

	tool      Tool
	board     *board.State // nil until the first valid snapshot
	legal     legality.Map
	connected bool
	diag      string
}

// NewState returns a disconnected client state for player.
func NewState(topo *board.Topology, player board.PlayerID, opts Options) *State {
	st := &State{topo: topo, player: player, opts: opts}
	st.legal = legality.Compute(topo, board.NewState(topo), "", legality.Options{})
	return st
}

func (st *State) Topology() *board.Topology { return st.topo }
func (st *State) Player() board.PlayerID    { return st.player }
func (st *State) Tool() Tool                { return st.tool }
func (st *State) Connected() bool           { return st.connected }

// Board returns the last confirmed snapshot, or nil.
func (st *State) Board() *board.State { return st.board }

// Legal returns the cached legality map. Every flag is false when it is not
// the local player's turn.
func (st *State) Legal() legality.Map { return st.legal }

// Diagnostic returns the most recent problem worth showing the user.
func (st *State) Diagnostic() string { return st.diag }

// SetPlayer changes the local player and recomputes legality.
func (st *State) SetPlayer(p board.PlayerID) {
	st.player = p
	st.recompute()
}

// Select sets the building tool. ToolNone clears the selection.
func (st *State) Select(t Tool) {
	st.tool = t
}

// Connect marks the channel as open. The board stays empty until the first
// snapshot arrives.
func (st *State) Connect() {
	st.connected = true
	st.diag = ""
}

// ChannelClosed drops the cached board, the legality map and any selection.
func (st *State) ChannelClosed(reason error) {
	st.connected = false
	st.board = nil
	st.tool = ToolNone
	st.recompute()
	if reason != nil {
		st.diag = reason.Error()
	} else {
		st.diag = "disconnected"
	}
}

// MyTurn reports whether the cached board says it is the local player's turn.
func (st *State) MyTurn() bool {
	return st.board != nil && st.player != "" && st.board.CurrentPlayer == st.player
}

// Phase returns the connectivity rules used for the cached board.
func (st *State) Phase() legality.Phase {
	switch st.opts.Setup {
	case SetupOn:
		return legality.PhaseSetup
	case SetupOff:
		return legality.PhaseMain
	}
	if st.board == nil {
		return legality.PhaseMain
	}
	if st.board.InitialBuild {
		return legality.PhaseSetup
	}
	switch st.board.ExpectedAction {
	case "settlement", "structure":
		return legality.PhaseSetup
	}
	return legality.PhaseMain
}

// ApplySnapshot decodes raw and, if it is well formed, replaces the cached
// board with it. A malformed frame leaves the previous board in place. The
// returned violations describe confirmed progress that went backwards; they
// are logged and the new board is kept regardless.
func (st *State) ApplySnapshot(raw []byte) ([]board.Violation, error) {
	next, err := protocol.DecodeSnapshot(raw, st.topo)
	if err != nil {
		st.diag = err.Error()
		slog.Warn("snapshot rejected", "error", err, "bytes", len(raw))
		return nil, err
	}

	var violations []board.Violation
	if st.board != nil {
		violations = board.CheckProgression(st.board, next)
		for _, v := range violations {
			slog.Warn("snapshot regressed", "violation", v.String())
		}
	}
	st.board = next
	st.diag = ""
	st.recompute()
	return violations, nil
}

func (st *State) recompute() {
	if !st.MyTurn() {
		st.legal = legality.Compute(st.topo, st.boardOrEmpty(), "", legality.Options{})
		return
	}
	st.legal = legality.Compute(st.topo, st.board, st.player, legality.Options{
		Phase:  st.Phase(),
		Source: st.opts.Source,
	})
}

func (st *State) boardOrEmpty() *board.State {
	if st.board != nil {
		return st.board
	}
	return board.NewState(st.topo)
}

// Highlighted reports whether the selected tool's hint marks element i.
func (st *State) Highlighted(i int) bool {
	var flags []bool
	switch st.tool {
	case ToolRoad:
		flags = st.legal.Roads
	case ToolSettlement:
		flags = st.legal.Settlements
	case ToolCity:
		flags = st.legal.Cities
	case ToolRobber:
		flags = st.legal.Robber
	}
	return i >= 0 && i < len(flags) && flags[i]
}

// ClickEdge builds the intent for a click on edge e.
func (st *State) ClickEdge(e int) (protocol.Intent, error) {
	if err := st.ready(); err != nil {
		return protocol.Intent{}, err
	}
	if st.tool != ToolRoad {
		return protocol.Intent{}, fmt.Errorf("%w: %s on edge", ErrWrongTarget, st.tool)
	}
	return protocol.Road(st.topo, e)
}

// ClickVertex builds the intent for a click on vertex v.
func (st *State) ClickVertex(v int) (protocol.Intent, error) {
	if err := st.ready(); err != nil {
		return protocol.Intent{}, err
	}
	switch st.tool {
	case ToolSettlement:
		return protocol.Settlement(st.topo, v)
	case ToolCity:
		return protocol.City(st.topo, v)
	}
	return protocol.Intent{}, fmt.Errorf("%w: %s on vertex", ErrWrongTarget, st.tool)
}

// ClickTile builds the intent for a click on tile t.
func (st *State) ClickTile(t int) (protocol.Intent, error) {
	if err := st.ready(); err != nil {
		return protocol.Intent{}, err
	}
	if st.tool != ToolRobber {
		return protocol.Intent{}, fmt.Errorf("%w: %s on tile", ErrWrongTarget, st.tool)
	}
	return protocol.MoveRobber(st.topo, t)
}

// Hit radii in scale units.
const (
	pointHitRadius = 1.5
	tileHitRadius  = 3.5
)

// ClickAt resolves a point in plane coordinates to the element the selected
// tool targets and builds its intent.
func (st *State) ClickAt(p board.Point, scale float64) (protocol.Intent, int, error) {
	if err := st.ready(); err != nil {
		return protocol.Intent{}, -1, err
	}
	var (
		i  int
		ok bool
	)
	switch st.tool {
	case ToolRoad:
		i, ok = st.topo.NearestEdge(p, scale, pointHitRadius*scale)
	case ToolSettlement, ToolCity:
		i, ok = st.topo.NearestVertex(p, scale, pointHitRadius*scale)
	case ToolRobber:
		i, ok = st.topo.NearestTile(p, scale, tileHitRadius*scale)
	}
	if !ok {
		return protocol.Intent{}, -1, fmt.Errorf("%w: nothing near (%.1f, %.1f)", ErrWrongTarget, p.X, p.Y)
	}
	var (
		in  protocol.Intent
		err error
	)
	switch st.tool {
	case ToolRoad:
		in, err = st.ClickEdge(i)
	case ToolRobber:
		in, err = st.ClickTile(i)
	default:
		in, err = st.ClickVertex(i)
	}
	return in, i, err
}

func (st *State) ready() error {
	if st.board == nil {
		return ErrNotConnected
	}
	if st.tool == ToolNone {
		return ErrNoTool
	}
	return nil
}
