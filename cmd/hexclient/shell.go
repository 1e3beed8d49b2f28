package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/client"
	"github.com/talgya/hexsettlers/internal/legality"
	"github.com/talgya/hexsettlers/internal/protocol"
	"github.com/talgya/hexsettlers/internal/render"
)

const helpText = `commands:
  tool <none|road|settlement|city|robber>   select a building tool
  road <edge>      settle <vertex>      city <vertex>      robber <tile>
  click <x> <y>    use the selected tool at a plane point
  roll | end | buy | play <knight|monopoly|road_build|invention>
  legal            list targets the selected tool may use
  status           show turn, resources and connection
  svg <file>       write the current board as svg
  quit`

// shell reads commands from a terminal and posts them into the session.
type shell struct {
	sess  *client.Session
	scale float64

	mu        sync.Mutex
	out       io.Writer
	lastFrame time.Time
	frames    int
}

func newShell(sess *client.Session, scale float64, out io.Writer) *shell {
	return &shell{sess: sess, scale: scale, out: out}
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

// run handles lines from in until quit, EOF or ctx is done.
func (sh *shell) run(ctx context.Context, in io.Reader) {
	sh.printf("%s\n", helpText)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if err := sh.handle(ctx, line); err != nil {
			sh.printf("error: %v\n", err)
		}
	}
}

// watch prints session events.
func (sh *shell) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sh.sess.Events():
			sh.report(e)
		}
	}
}

func (sh *shell) report(e client.Event) {
	switch e.Kind {
	case client.EventSnapshot:
		sh.mu.Lock()
		sh.lastFrame = time.Now()
		sh.frames++
		sh.mu.Unlock()
		for _, v := range e.Violations {
			sh.printf("warning: server state went backwards: %s\n", v)
		}
	case client.EventConnected:
		sh.printf("connected\n")
	case client.EventClosed, client.EventRejected, client.EventDialFailed:
		sh.printf("%s: %v\n", e.Kind, e.Err)
	}
}

func (sh *shell) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		sh.printf("%s\n", helpText)
		return nil

	case "tool":
		if len(args) != 1 {
			return fmt.Errorf("usage: tool <name>")
		}
		tool, ok := client.ParseTool(args[0])
		if !ok {
			return fmt.Errorf("unknown tool %q", args[0])
		}
		return sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
			st.Select(tool)
			return nil, nil
		})

	case "road", "settle", "settlement", "city", "robber":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <index>", cmd)
		}
		i, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return sh.place(ctx, cmd, i)

	case "click":
		if len(args) != 2 {
			return fmt.Errorf("usage: click <x> <y>")
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return fmt.Errorf("click: coordinates must be numbers")
		}
		var (
			target int
			hint   bool
			tool   client.Tool
		)
		err := sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
			in, i, err := st.ClickAt(board.Point{X: x, Y: y}, sh.scale)
			if err != nil {
				return nil, err
			}
			target, hint, tool = i, st.Highlighted(i), st.Tool()
			return &in, nil
		})
		if err != nil {
			return err
		}
		sh.printf("sent %s %d%s\n", tool, target, hintNote(hint))
		return nil

	case "roll", "end", "buy":
		in := map[string]protocol.Intent{
			"roll": protocol.Roll(),
			"end":  protocol.EndTurn(),
			"buy":  protocol.BuyDev(),
		}[cmd]
		return sh.sess.Do(ctx, func(*client.State) (*protocol.Intent, error) { return &in, nil })

	case "play":
		if len(args) != 1 {
			return fmt.Errorf("usage: play <dev type>")
		}
		d, err := protocol.ParseDevType(args[0])
		if err != nil {
			return err
		}
		in, err := protocol.PlayDev(d)
		if err != nil {
			return err
		}
		return sh.sess.Do(ctx, func(*client.State) (*protocol.Intent, error) { return &in, nil })

	case "legal":
		return sh.legal(ctx)

	case "status":
		return sh.status(ctx)

	case "svg":
		if len(args) != 1 {
			return fmt.Errorf("usage: svg <file>")
		}
		return sh.svg(ctx, args[0])
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

var placeTools = map[string]client.Tool{
	"road":       client.ToolRoad,
	"settle":     client.ToolSettlement,
	"settlement": client.ToolSettlement,
	"city":       client.ToolCity,
	"robber":     client.ToolRobber,
}

// place selects the tool for cmd and clicks element i. The intent goes out
// even if the local hint disagrees; the next snapshot tells the truth.
func (sh *shell) place(ctx context.Context, cmd string, i int) error {
	tool := placeTools[cmd]
	var hint bool
	err := sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
		st.Select(tool)
		var (
			in  protocol.Intent
			err error
		)
		switch tool {
		case client.ToolRoad:
			in, err = st.ClickEdge(i)
		case client.ToolRobber:
			in, err = st.ClickTile(i)
		default:
			in, err = st.ClickVertex(i)
		}
		if err != nil {
			return nil, err
		}
		hint = st.Highlighted(i)
		return &in, nil
	})
	if err != nil {
		return err
	}
	sh.printf("sent %s %d%s\n", tool, i, hintNote(hint))
	return nil
}

func hintNote(legal bool) string {
	if legal {
		return ""
	}
	return " (not highlighted locally; the server decides)"
}

func (sh *shell) legal(ctx context.Context) error {
	var (
		tool    client.Tool
		targets []int
	)
	err := sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
		tool = st.Tool()
		if st.Board() == nil {
			return nil, client.ErrNotConnected
		}
		targets = flagged(flagsFor(st.Legal(), tool))
		return nil, nil
	})
	if err != nil {
		return err
	}
	if tool == client.ToolNone {
		return client.ErrNoTool
	}
	sh.printf("%s: %s\n", tool, formatIndices(targets))
	return nil
}

func (sh *shell) status(ctx context.Context) error {
	var lines []string
	err := sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
		lines = append(lines, fmt.Sprintf("player %s, connected %v, tool %s", st.Player(), st.Connected(), st.Tool()))
		if d := st.Diagnostic(); d != "" {
			lines = append(lines, "last problem: "+d)
		}
		b := st.Board()
		if b == nil {
			return nil, nil
		}
		phase := "main"
		if st.Phase() == legality.PhaseSetup {
			phase = "setup"
		}
		lines = append(lines, fmt.Sprintf("turn %s, expected %q, %s phase, robber on tile %d",
			b.CurrentPlayer, b.ExpectedAction, phase, b.Robber))
		lines = append(lines, "resources: "+formatResources(b.Players[st.Player()].Resources))
		lines = append(lines, fmt.Sprintf("roads %d, structures %d",
			len(b.RoadsOf(st.Player())), len(b.StructuresOf(st.Player()))))
		m := st.Legal()
		r, s, c, rb := m.Count()
		source := "local"
		if m.RoadsFromServer || m.SettlementsFromServer {
			source = "server"
		}
		lines = append(lines, fmt.Sprintf("legal: %d roads, %d settlements, %d cities, %d robber tiles (%s)", r, s, c, rb, source))
		for _, info := range b.Info {
			lines = append(lines, "info: "+info)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	sh.mu.Lock()
	if sh.frames > 0 {
		lines = append(lines, fmt.Sprintf("%s snapshots, last %s",
			humanize.Comma(int64(sh.frames)), humanize.Time(sh.lastFrame)))
	}
	sh.mu.Unlock()
	sh.printf("%s\n", strings.Join(lines, "\n"))
	return nil
}

func (sh *shell) svg(ctx context.Context, path string) error {
	var (
		topo *board.Topology
		b    *board.State
		m    legality.Map
		tool client.Tool
	)
	err := sh.sess.Do(ctx, func(st *client.State) (*protocol.Intent, error) {
		// Snapshots are replaced, never mutated, so the pointers stay valid
		// after the loop moves on.
		topo, b, m, tool = st.Topology(), st.Board(), st.Legal(), st.Tool()
		return nil, nil
	})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := render.SVG(f, topo, b, m, render.Options{Scale: sh.scale, Highlight: highlightFor(tool)}); err != nil {
		return err
	}
	sh.printf("wrote %s\n", path)
	return f.Close()
}

func highlightFor(t client.Tool) render.Highlight {
	switch t {
	case client.ToolRoad:
		return render.HighlightRoads
	case client.ToolSettlement:
		return render.HighlightSettlements
	case client.ToolCity:
		return render.HighlightCities
	case client.ToolRobber:
		return render.HighlightRobber
	}
	return render.HighlightNone
}

func flagsFor(m legality.Map, t client.Tool) []bool {
	switch t {
	case client.ToolRoad:
		return m.Roads
	case client.ToolSettlement:
		return m.Settlements
	case client.ToolCity:
		return m.Cities
	case client.ToolRobber:
		return m.Robber
	}
	return nil
}

func flagged(flags []bool) []int {
	var out []int
	for i, f := range flags {
		if f {
			out = append(out, i)
		}
	}
	return out
}

func formatIndices(idx []int) string {
	if len(idx) == 0 {
		return "none"
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func formatResources(res map[board.Resource]int) string {
	if len(res) == 0 {
		return "none"
	}
	keys := make([]board.Resource, 0, len(res))
	for r := range res {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, r := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", board.ResourceName(r), res[r]))
	}
	return strings.Join(parts, ", ")
}

// parseIndex reads an element index. Range checks happen when the intent is
// built.
func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index %q: not a number", s)
	}
	return i, nil
}
