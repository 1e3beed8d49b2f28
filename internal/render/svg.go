// Package render draws a board snapshot as SVG. It only turns geometry,
// confirmed state and legality flags into shapes; it decides nothing.
package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"strconv"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/legality"
)

// Highlight selects which legality flags are drawn.
type Highlight uint8

const (
	HighlightNone Highlight = iota
	HighlightRoads
	HighlightSettlements
	HighlightCities
	HighlightRobber
)

// Options tune the drawing.
type Options struct {
	Scale     float64 // pixels per lattice unit
	Seed      int64   // shading noise seed
	Highlight Highlight
	Indices   bool // label vertices and edges with their index
}

var resourceColors = map[board.Resource][3]float64{
	board.ResourceDesert: {0xd7, 0xc9, 0xa0},
	board.ResourceBrick:  {0xb5, 0x53, 0x3c},
	board.ResourceWood:   {0x2e, 0x7d, 0x32},
	board.ResourceWool:   {0x9c, 0xcc, 0x65},
	board.ResourceWheat:  {0xf9, 0xa8, 0x25},
	board.ResourceOre:    {0x78, 0x90, 0x9c},
}

var playerPalette = []string{"#d32f2f", "#1976d2", "#f5f5f5", "#ef6c00", "#388e3c", "#6d4c41"}

// SVG writes the board. s may be nil, in which case only the empty lattice
// is drawn.
func SVG(w io.Writer, topo *board.Topology, s *board.State, m legality.Map, opts Options) error {
	if opts.Scale <= 0 {
		opts.Scale = 20
	}
	if s == nil {
		s = board.NewState(topo)
	}
	sc := opts.Scale
	sin60 := math.Sin(math.Pi / 3)
	colors := playerColors(s)
	noise := opensimplex.NewNormalized(opts.Seed)

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(-sc*15), num(-sc*12/sin60), num(sc*30), num(sc*24/sin60), num(sc*30), num(sc*24/sin60))
	if s.CurrentPlayer != "" {
		fmt.Fprintf(&b, "<title>turn: %s</title>\n", html.EscapeString(string(s.CurrentPlayer)))
	}

	b.WriteString(`<g class="tiles">` + "\n")
	for i, c := range topo.Tiles {
		tc := s.Tiles[i]
		centre := board.ToPlane(c, 1)
		fill := shadeColor(resourceColors[tc.Resource], tileNoise(noise, centre.X/board.TileSpacing, centre.Y/board.TileSpacing))
		fmt.Fprintf(&b, `<polygon class="tile" data-idx="%d" points="%s" fill="%s" stroke="#5d4037" stroke-width="%s"/>`+"\n",
			i, hexPoints(topo, i, sc), fill, num(sc*0.15))
		if opts.Highlight == HighlightRobber && flag(m.Robber, i) {
			fmt.Fprintf(&b, `<polygon class="hl-robber" data-idx="%d" points="%s" fill="none" stroke="#ff9800" stroke-width="%s"/>`+"\n",
				i, hexPoints(topo, i, sc), num(sc*0.4))
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="tokens">` + "\n")
	for i, c := range topo.Tiles {
		p := board.ToPlane(c, sc)
		if n := s.Tiles[i].Number; n > 0 {
			color := "#212121"
			if n == 6 || n == 8 {
				color = "#c62828"
			}
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="#fff8e1"/>`+"\n", num(p.X), num(p.Y), num(sc*1.2))
			fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="%s" text-anchor="middle" dominant-baseline="central" fill="%s">%d</text>`+"\n",
				num(p.X), num(p.Y), num(sc*1.2), color, n)
		}
		if i == s.Robber {
			fmt.Fprintf(&b, `<circle class="robber" cx="%s" cy="%s" r="%s" fill="#424242"/>`+"\n",
				num(p.X+sc*1.8), num(p.Y-sc*1.2), num(sc*0.7))
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="edges">` + "\n")
	for e, ends := range topo.Edges {
		a := board.ToPlane(topo.Vertices[ends[0]], sc)
		z := board.ToPlane(topo.Vertices[ends[1]], sc)
		if owner := s.EdgeOwner[e]; owner != "" {
			fmt.Fprintf(&b, `<line class="road" data-idx="%d" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s" stroke-linecap="round"/>`+"\n",
				e, num(a.X), num(a.Y), num(z.X), num(z.Y), colors[owner], num(sc*0.5))
		} else if opts.Highlight == HighlightRoads && flag(m.Roads, e) {
			fmt.Fprintf(&b, `<line class="hl-road" data-idx="%d" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#76ff03" stroke-opacity="0.7" stroke-width="%s" stroke-linecap="round"/>`+"\n",
				e, num(a.X), num(a.Y), num(z.X), num(z.Y), num(sc*0.5))
		}
		if opts.Indices {
			mid := board.ToPlane(topo.EdgeMidpoint(e), sc)
			fmt.Fprintf(&b, `<text class="idx" x="%s" y="%s" font-size="%s" text-anchor="middle">%d</text>`+"\n",
				num(mid.X), num(mid.Y), num(sc*0.6), e)
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="nodes">` + "\n")
	for v, c := range topo.Vertices {
		p := board.ToPlane(c, sc)
		occ := s.Nodes[v]
		switch occ.Rank {
		case board.RankSettlement:
			fmt.Fprintf(&b, `<circle class="settlement" data-idx="%d" cx="%s" cy="%s" r="%s" fill="%s" stroke="#000"/>`+"\n",
				v, num(p.X), num(p.Y), num(sc*0.7), colors[occ.Owner])
		case board.RankCity:
			d := sc * 0.9
			fmt.Fprintf(&b, `<rect class="city" data-idx="%d" x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="#000"/>`+"\n",
				v, num(p.X-d), num(p.Y-d), num(2*d), num(2*d), colors[occ.Owner])
		}
		switch {
		case opts.Highlight == HighlightSettlements && flag(m.Settlements, v):
			fmt.Fprintf(&b, `<circle class="hl-settlement" data-idx="%d" cx="%s" cy="%s" r="%s" fill="#ffeb3b" fill-opacity="0.8"/>`+"\n",
				v, num(p.X), num(p.Y), num(sc*0.6))
		case opts.Highlight == HighlightCities && flag(m.Cities, v):
			fmt.Fprintf(&b, `<circle class="hl-city" data-idx="%d" cx="%s" cy="%s" r="%s" fill="none" stroke="#00e676" stroke-width="%s"/>`+"\n",
				v, num(p.X), num(p.Y), num(sc*1.1), num(sc*0.3))
		}
		if opts.Indices {
			fmt.Fprintf(&b, `<text class="idx" x="%s" y="%s" font-size="%s">%d</text>`+"\n",
				num(p.X+sc*0.5), num(p.Y-sc*0.5), num(sc*0.6), v)
		}
	}
	b.WriteString("</g>\n</svg>\n")

	_, err := w.Write(b.Bytes())
	return err
}

// PlayerColor returns the colour a player is drawn in.
func PlayerColor(s *board.State, p board.PlayerID) string {
	return playerColors(s)[p]
}

func playerColors(s *board.State) map[board.PlayerID]string {
	out := make(map[board.PlayerID]string, len(s.PlayerOrder))
	for i, id := range s.PlayerOrder {
		out[id] = playerPalette[i%len(playerPalette)]
	}
	// Owners missing from the player list still get a colour.
	next := len(s.PlayerOrder)
	assign := func(id board.PlayerID) {
		if id == "" {
			return
		}
		if _, ok := out[id]; !ok {
			out[id] = playerPalette[next%len(playerPalette)]
			next++
		}
	}
	for _, id := range s.EdgeOwner {
		assign(id)
	}
	for _, n := range s.Nodes {
		assign(n.Owner)
	}
	return out
}

func hexPoints(topo *board.Topology, i int, scale float64) string {
	var b bytes.Buffer
	for k, c := range topo.TileCorners(i) {
		if k > 0 {
			b.WriteByte(' ')
		}
		p := board.ToPlane(c, scale)
		b.WriteString(num(p.X) + "," + num(p.Y))
	}
	return b.String()
}

func flag(flags []bool, i int) bool {
	return i >= 0 && i < len(flags) && flags[i]
}

// num formats a coordinate with two decimals and no negative zero.
func num(x float64) string {
	x = math.Round(x*100) / 100
	if x == 0 {
		x = 0
	}
	return strconv.FormatFloat(x, 'f', -1, 64)
}
