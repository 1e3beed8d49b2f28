package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/client"
	"github.com/talgya/hexsettlers/internal/protocol"
)

type pipeConn struct {
	sent   chan any
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *pipeConn) Send(v any) error      { c.sent <- v; return nil }
func (c *pipeConn) Frames() <-chan []byte { return c.frames }
func (c *pipeConn) Done() <-chan struct{} { return c.done }
func (c *pipeConn) Err() error            { return nil }
func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// connected starts a session for player A on a board where A has settled
// vertex 0 and it is A's turn.
func connected(t *testing.T) (*shell, *pipeConn, *bytes.Buffer) {
	t.Helper()
	topo := board.Standard()
	conn := &pipeConn{sent: make(chan any, 8), frames: make(chan []byte, 8), done: make(chan struct{})}
	st := client.NewState(topo, "A", client.Options{Setup: client.SetupOff})
	sess := client.NewSession(st, client.SessionConfig{
		Dial: func(context.Context) (client.Conn, error) { return conn, nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Run(ctx)

	s := board.NewState(topo)
	s.PlayerOrder = []board.PlayerID{"A", "B"}
	s.CurrentPlayer = "A"
	s.Nodes[0] = board.Occupant{Owner: "A", Rank: board.RankSettlement}
	s.Players["A"] = board.PlayerState{Resources: map[board.Resource]int{board.ResourceOre: 2, board.ResourceBrick: 1}}
	raw, err := protocol.EncodeSnapshot(s)
	if err != nil {
		t.Fatal(err)
	}
	conn.frames <- raw

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-sess.Events():
			if e.Kind == client.EventSnapshot {
				var out bytes.Buffer
				return newShell(sess, 20, &out), conn, &out
			}
		case <-deadline:
			t.Fatal("snapshot never applied")
		}
	}
}

func sentIntent(t *testing.T, conn *pipeConn) protocol.Intent {
	t.Helper()
	select {
	case v := <-conn.sent:
		return v.(protocol.Intent)
	case <-time.After(5 * time.Second):
		t.Fatal("nothing sent")
	}
	return protocol.Intent{}
}

func TestShellPlacement(t *testing.T) {
	sh, conn, out := connected(t)
	ctx := context.Background()

	if err := sh.handle(ctx, "settle 30"); err != nil {
		t.Fatal(err)
	}
	in := sentIntent(t, conn)
	if in.ActionType != protocol.ActionSettlement || in.Kwargs["node_idx"] != 30 {
		t.Errorf("sent %+v", in)
	}
	if !strings.Contains(out.String(), "server decides") {
		t.Errorf("no hint note for an unconnected vertex: %q", out.String())
	}

	if err := sh.handle(ctx, "city 0"); err != nil {
		t.Fatal(err)
	}
	if in := sentIntent(t, conn); in.ActionType != protocol.ActionCity {
		t.Errorf("sent %+v", in)
	}

	if err := sh.handle(ctx, "play knight"); err != nil {
		t.Fatal(err)
	}
	if in := sentIntent(t, conn); in.Kwargs["dev_type"] != "knight" {
		t.Errorf("sent %+v", in)
	}

	if err := sh.handle(ctx, "end"); err != nil {
		t.Fatal(err)
	}
	if in := sentIntent(t, conn); in.ActionType != protocol.ActionEndTurn {
		t.Errorf("sent %+v", in)
	}
}

func TestShellRejectsBadInput(t *testing.T) {
	sh, _, _ := connected(t)
	ctx := context.Background()
	for _, line := range []string{"road x", "road 72", "tool hammer", "play victory", "fly", "click 1", "svg"} {
		if err := sh.handle(ctx, line); err == nil {
			t.Errorf("%q accepted", line)
		}
	}
}

func TestShellLegalAndStatus(t *testing.T) {
	sh, _, out := connected(t)
	ctx := context.Background()

	if err := sh.handle(ctx, "legal"); err == nil {
		t.Error("legal without a tool should fail")
	}
	if err := sh.handle(ctx, "tool city"); err != nil {
		t.Fatal(err)
	}
	if err := sh.handle(ctx, "legal"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "city: 0\n") {
		t.Errorf("legal output: %q", out.String())
	}

	if err := sh.handle(ctx, "status"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"player A", "turn A", "brick 1, ore 2", "1 cities"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestShellSVG(t *testing.T) {
	sh, _, _ := connected(t)
	path := filepath.Join(t.TempDir(), "board.svg")
	sh.handle(context.Background(), "tool settlement")
	if err := sh.handle(context.Background(), "svg "+path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("<svg")) || !bytes.Contains(data, []byte(`class="settlement"`)) {
		t.Errorf("unexpected svg:\n%.200s", data)
	}
}

func TestFormatting(t *testing.T) {
	if got := formatIndices(nil); got != "none" {
		t.Errorf("formatIndices(nil) = %q", got)
	}
	if got := formatIndices([]int{3, 10}); got != "3 10" {
		t.Errorf("formatIndices = %q", got)
	}
	if got := formatResources(map[board.Resource]int{board.ResourceWheat: 1, board.ResourceWood: 4}); got != "wood 4, wheat 1" {
		t.Errorf("formatResources = %q", got)
	}
	if _, err := parseIndex("-"); err == nil {
		t.Error("parseIndex accepted a dash")
	}
}
