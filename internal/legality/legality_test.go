package legality

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/talgya/hexsettlers/internal/board"
)

var (
	setupPhase = Options{Phase: PhaseSetup}
	mainPhase  = Options{Phase: PhaseMain}
)

func settle(s *board.State, v int, p board.PlayerID) {
	s.Nodes[v] = board.Occupant{Owner: p, Rank: board.RankSettlement}
}

func trueIndices(flags []bool) []int {
	var out []int
	for i, f := range flags {
		if f {
			out = append(out, i)
		}
	}
	return out
}

func TestSettlementDistanceRule(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	a := 0
	b := topo.Neighbors(a)[0]
	settle(s, a, "A")
	settle(s, b, "B")

	m := Compute(topo, s, "A", setupPhase)
	for v, c := range topo.Vertices {
		da := board.Distance(c, topo.Vertices[a])
		db := board.Distance(c, topo.Vertices[b])
		switch {
		case da <= 4 || db <= 4:
			if m.Settlements[v] {
				t.Errorf("vertex %d within one edge of a structure reported legal", v)
			}
		case da >= 8 && db >= 8:
			if !m.Settlements[v] {
				t.Errorf("vertex %d far from every structure reported illegal", v)
			}
		}
	}
}

func TestEmptyBoardSetupAllowsEverySettlement(t *testing.T) {
	topo := board.Standard()
	m := Compute(topo, board.NewState(topo), "A", setupPhase)
	if n := len(trueIndices(m.Settlements)); n != topo.NumVertices() {
		t.Errorf("legal settlements on an empty board = %d, want %d", n, topo.NumVertices())
	}
	if n := len(trueIndices(m.Roads)); n != 0 {
		t.Errorf("legal roads with no structures = %d, want 0", n)
	}
}

func TestMainPhaseSettlementNeedsOwnRoad(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	settle(s, 0, "A")

	w := topo.Neighbors(0)[0]
	first, _ := topo.EdgeBetween(0, w)
	s.EdgeOwner[first] = "A"
	if got := trueIndices(Compute(topo, s, "A", mainPhase).Settlements); got != nil {
		t.Fatalf("settlements with a single road = %v, want none", got)
	}

	var x int
	for _, n := range topo.Neighbors(w) {
		if n != 0 {
			x = n
			break
		}
	}
	second, _ := topo.EdgeBetween(w, x)
	s.EdgeOwner[second] = "A"
	got := trueIndices(Compute(topo, s, "A", mainPhase).Settlements)
	if !slices.Equal(got, []int{x}) {
		t.Fatalf("settlements after two roads = %v, want [%d]", got, x)
	}
	if got := trueIndices(Compute(topo, s, "B", mainPhase).Settlements); got != nil {
		t.Errorf("B settlements = %v, want none", got)
	}
}

func TestRoadNetworkRule(t *testing.T) {
	topo := board.Standard()
	for _, opts := range []Options{setupPhase, mainPhase} {
		for _, v := range []int{0, 17, 53} {
			s := board.NewState(topo)
			settle(s, v, "P")

			got := trueIndices(Compute(topo, s, "P", opts).Roads)
			want := slices.Clone(topo.IncidentEdges(v))
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Errorf("phase %d vertex %d: roads %v, want %v", opts.Phase, v, got, want)
			}
			if other := trueIndices(Compute(topo, s, "Q", opts).Roads); other != nil {
				t.Errorf("phase %d vertex %d: Q roads %v, want none", opts.Phase, v, other)
			}
		}
	}
}

func TestRoadBlockedByOpponentStructure(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)

	// A owns a lone road a-b; B has settled on b.
	e := 0
	a, b := topo.Edges[e][0], topo.Edges[e][1]
	s.EdgeOwner[e] = "A"
	settle(s, b, "B")

	m := Compute(topo, s, "A", mainPhase)
	for _, adj := range topo.IncidentEdges(b) {
		if adj != e && m.Roads[adj] {
			t.Errorf("edge %d extends A's road through B's settlement", adj)
		}
	}
	for _, adj := range topo.IncidentEdges(a) {
		if adj != e && !m.Roads[adj] {
			t.Errorf("edge %d should extend A's road from the open end", adj)
		}
	}
	if m.Roads[e] {
		t.Error("an owned edge is reported legal")
	}
}

func TestCityUpgrade(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	settle(s, 3, "A")
	s.Nodes[20] = board.Occupant{Owner: "A", Rank: board.RankCity}
	settle(s, 40, "B")

	tests := []struct {
		v    int
		want bool
	}{
		{3, true},
		{20, false},
		{40, false},
		{10, false},
	}
	m := Compute(topo, s, "A", mainPhase)
	for _, tt := range tests {
		if m.Cities[tt.v] != tt.want {
			t.Errorf("Cities[%d] = %v, want %v", tt.v, m.Cities[tt.v], tt.want)
		}
		got, err := City(topo, s, "A", tt.v)
		if err != nil || got != tt.want {
			t.Errorf("City(%d) = %v, %v", tt.v, got, err)
		}
	}
}

func TestRobber(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	s.Robber = 7
	m := Compute(topo, s, "A", mainPhase)
	for tile, ok := range m.Robber {
		if ok == (tile == 7) {
			t.Errorf("Robber[%d] = %v", tile, ok)
		}
	}
	if ok, _ := RobberTile(topo, s, 7); ok {
		t.Error("moving the robber onto its own tile reported legal")
	}
}

func TestIdempotent(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	settle(s, 0, "A")
	settle(s, 30, "B")
	s.EdgeOwner[topo.IncidentEdges(30)[0]] = "B"
	before := s.Clone()

	for _, opts := range []Options{setupPhase, mainPhase} {
		m1 := Compute(topo, s, "B", opts)
		m2 := Compute(topo, s, "B", opts)
		if !reflect.DeepEqual(m1, m2) {
			t.Fatalf("phase %d: maps differ between calls", opts.Phase)
		}
	}
	if !reflect.DeepEqual(before, s) {
		t.Fatal("Compute modified the state")
	}
}

func TestEndToEndScenario(t *testing.T) {
	topo := board.Standard()
	if topo.NumVertices() != 54 || topo.NumEdges() != 72 || topo.NumTiles() != 19 {
		t.Fatalf("unexpected topology size")
	}
	s := board.NewState(topo)
	settle(s, 0, "A")
	origin := topo.Vertices[0]

	m := Compute(topo, s, "A", setupPhase)
	for v, c := range topo.Vertices {
		d := board.Distance(c, origin)
		if d <= 4 && m.Settlements[v] {
			t.Errorf("vertex %d at distance %d reported legal", v, d)
		}
		if d >= 8 && !m.Settlements[v] {
			t.Errorf("vertex %d at distance %d reported illegal", v, d)
		}
	}
	for e, ends := range topo.Edges {
		touches := ends[0] == 0 || ends[1] == 0
		if m.Roads[e] != touches {
			t.Errorf("edge %d: legal=%v, touches vertex 0=%v", e, m.Roads[e], touches)
		}
	}

	road := topo.IncidentEdges(0)[0]
	far := topo.OtherEnd(road, 0)
	s.EdgeOwner[road] = "A"

	m = Compute(topo, s, "A", mainPhase)
	for _, e := range topo.IncidentEdges(far) {
		if e != road && !m.Roads[e] {
			t.Errorf("edge %d extending from far endpoint %d not legal", e, far)
		}
	}
	for _, e := range topo.IncidentEdges(0) {
		if e != road && !m.Roads[e] {
			t.Errorf("edge %d at the settlement no longer legal", e)
		}
	}
	if m.Roads[road] {
		t.Error("the placed road is still reported legal")
	}
}

func TestServerPreferred(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	settle(s, 0, "A")

	roads := make([]bool, topo.NumEdges())
	roads[50] = true
	settlements := make([]bool, topo.NumVertices())
	settlements[40] = true
	s.Players["A"] = board.PlayerState{AvailableRoads: roads, AvailableSettlements: settlements}

	served := Compute(topo, s, "A", Options{Phase: PhaseMain, Source: SourceServerPreferred})
	if !served.RoadsFromServer || !served.SettlementsFromServer {
		t.Fatal("server bitmaps were not used")
	}
	if got := trueIndices(served.Roads); !slices.Equal(got, []int{50}) {
		t.Errorf("roads = %v, want [50]", got)
	}
	if got := trueIndices(served.Settlements); !slices.Equal(got, []int{40}) {
		t.Errorf("settlements = %v, want [40]", got)
	}
	if !served.Cities[0] {
		t.Error("city flags are always derived locally")
	}

	local := Compute(topo, s, "A", Options{Phase: PhaseMain, Source: SourceLocal})
	if local.RoadsFromServer || local.SettlementsFromServer {
		t.Error("local mode used server bitmaps")
	}

	s.Players["A"] = board.PlayerState{AvailableRoads: roads}
	partial := Compute(topo, s, "A", Options{Phase: PhaseMain, Source: SourceServerPreferred})
	if !partial.RoadsFromServer || partial.SettlementsFromServer {
		t.Errorf("partial bitmaps: roads=%v settlements=%v", partial.RoadsFromServer, partial.SettlementsFromServer)
	}

	delete(s.Players, "A")
	fallback := Compute(topo, s, "A", Options{Phase: PhaseMain, Source: SourceServerPreferred})
	if fallback.RoadsFromServer || !reflect.DeepEqual(fallback.Roads, local.Roads) {
		t.Error("missing bitmaps should fall back to local derivation")
	}
}

func TestInvalidIndex(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	checks := []struct {
		name string
		fn   func() (bool, error)
	}{
		{"road", func() (bool, error) { return Road(topo, s, "A", 72) }},
		{"settlement", func() (bool, error) { return Settlement(topo, s, "A", PhaseMain, -1) }},
		{"city", func() (bool, error) { return City(topo, s, "A", 54) }},
		{"robber", func() (bool, error) { return RobberTile(topo, s, 19) }},
	}
	for _, c := range checks {
		if ok, err := c.fn(); ok || !errors.Is(err, board.ErrInvalidIndex) {
			t.Errorf("%s: got %v, %v", c.name, ok, err)
		}
	}
}

func TestNoPlayer(t *testing.T) {
	topo := board.Standard()
	s := board.NewState(topo)
	m := Compute(topo, s, "", setupPhase)
	r, st, c, rb := m.Count()
	if r+st+c+rb != 0 {
		t.Errorf("empty player got %d/%d/%d/%d flags", r, st, c, rb)
	}
	if ok, _ := Road(topo, s, "", 0); ok {
		t.Error("empty player may not build roads")
	}
}
