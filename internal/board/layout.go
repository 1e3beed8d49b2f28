package board

import (
	"encoding/json"
	"fmt"
	"io"
)

// StandardVersion names the layout table of the standard board. Client and
// server must be built against the same version.
const StandardVersion = "standard-v1"

// Layout is the serialised layout table: cube coordinates of every tile and
// vertex plus the vertex-index pairs forming every edge.
type Layout struct {
	Version  string   `json:"version"`
	Tiles    [][3]int `json:"tile_coords"`
	Vertices [][3]int `json:"node_coords"`
	Edges    [][2]int `json:"edges"`
}

// Layout exports the topology as a layout table.
func (t *Topology) Layout() Layout {
	l := Layout{
		Version:  t.Version,
		Tiles:    make([][3]int, len(t.Tiles)),
		Vertices: make([][3]int, len(t.Vertices)),
		Edges:    make([][2]int, len(t.Edges)),
	}
	for i, c := range t.Tiles {
		l.Tiles[i] = c.Cube()
	}
	for i, c := range t.Vertices {
		l.Vertices[i] = c.Cube()
	}
	copy(l.Edges, t.Edges)
	return l
}

// Topology rebuilds and validates a topology from the layout table.
func (l Layout) Topology() (*Topology, error) {
	if l.Version == "" {
		return nil, fmt.Errorf("layout: missing version")
	}
	tiles, err := cubeList("tile", l.Tiles)
	if err != nil {
		return nil, err
	}
	vertices, err := cubeList("vertex", l.Vertices)
	if err != nil {
		return nil, err
	}
	edges := make([][2]int, len(l.Edges))
	copy(edges, l.Edges)

	t, err := NewTopology(l.Version, tiles, vertices, edges)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", l.Version, err)
	}
	return t, nil
}

func cubeList(kind string, raw [][3]int) ([]Coord, error) {
	out := make([]Coord, len(raw))
	for i, c := range raw {
		coord, ok := CubeCoord(c[0], c[1], c[2])
		if !ok {
			return nil, fmt.Errorf("layout: %s %d: %v does not satisfy q+r+s=0", kind, i, c)
		}
		out[i] = coord
	}
	return out, nil
}

// WriteLayout encodes the topology's layout table as indented JSON.
func WriteLayout(w io.Writer, t *Topology) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Layout())
}

// ReadLayout decodes and validates a layout table.
func ReadLayout(r io.Reader) (*Topology, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return l.Topology()
}
