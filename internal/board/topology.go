package board

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidIndex reports a tile, vertex or edge index outside the topology.
// It is a caller bug; indices are never clamped.
var ErrInvalidIndex = errors.New("invalid index")

// Topology is the static board graph shared by client and server. All slices
// are read-only once built; indices are stable for the whole session.
type Topology struct {
	Version  string
	Tiles    []Coord  // tile centres
	Vertices []Coord  // tile corners (settlement sites)
	Edges    [][2]int // vertex-index endpoint pairs (road sites)

	tileIndex   map[Coord]int
	vertexIndex map[Coord]int
	edgeIndex   map[[2]int]int // sorted endpoint pair -> edge

	vertexEdges     [][]int
	vertexNeighbors [][]int
	vertexTiles     [][]int
	tileVertices    [][]int
}

// NewTopology validates the tables and precomputes the adjacency indices.
func NewTopology(version string, tiles, vertices []Coord, edges [][2]int) (*Topology, error) {
	t := &Topology{
		Version:     version,
		Tiles:       tiles,
		Vertices:    vertices,
		Edges:       edges,
		tileIndex:   make(map[Coord]int, len(tiles)),
		vertexIndex: make(map[Coord]int, len(vertices)),
		edgeIndex:   make(map[[2]int]int, len(edges)),
	}

	for i, c := range tiles {
		if _, dup := t.tileIndex[c]; dup {
			return nil, fmt.Errorf("tile %d: duplicate position %v", i, c)
		}
		t.tileIndex[c] = i
	}
	for i, c := range vertices {
		if _, dup := t.vertexIndex[c]; dup {
			return nil, fmt.Errorf("vertex %d: duplicate position %v", i, c)
		}
		t.vertexIndex[c] = i
	}

	t.vertexEdges = make([][]int, len(vertices))
	t.vertexNeighbors = make([][]int, len(vertices))
	for i, e := range edges {
		a, b := e[0], e[1]
		if a < 0 || a >= len(vertices) || b < 0 || b >= len(vertices) {
			return nil, fmt.Errorf("edge %d: %w: endpoints %d, %d of %d vertices", i, ErrInvalidIndex, a, b, len(vertices))
		}
		if !isEdgeStep(vertices[b].Sub(vertices[a])) {
			return nil, fmt.Errorf("edge %d: endpoints %d and %d are not lattice neighbours (%v to %v)",
				i, a, b, vertices[a], vertices[b])
		}
		key := pairKey(a, b)
		if _, dup := t.edgeIndex[key]; dup {
			return nil, fmt.Errorf("edge %d: duplicate endpoints %d, %d", i, a, b)
		}
		t.edgeIndex[key] = i
		t.vertexEdges[a] = append(t.vertexEdges[a], i)
		t.vertexEdges[b] = append(t.vertexEdges[b], i)
		t.vertexNeighbors[a] = append(t.vertexNeighbors[a], b)
		t.vertexNeighbors[b] = append(t.vertexNeighbors[b], a)
	}

	// A vertex belongs to a tile iff it is one of the tile's six corners.
	t.vertexTiles = make([][]int, len(vertices))
	t.tileVertices = make([][]int, len(tiles))
	for ti, c := range tiles {
		for _, off := range cornerOffsets {
			vi, ok := t.vertexIndex[c.Add(off)]
			if !ok {
				continue
			}
			t.tileVertices[ti] = append(t.tileVertices[ti], vi)
			t.vertexTiles[vi] = append(t.vertexTiles[vi], ti)
		}
	}

	return t, nil
}

// isEdgeStep reports whether d joins two corners that share a tile side.
// Such steps are twice a half corner direction, either way round.
func isEdgeStep(d Coord) bool {
	for _, h := range halfCorner {
		if d == h.Mul(2) || d == h.Mul(-2) {
			return true
		}
	}
	return false
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (t *Topology) NumTiles() int    { return len(t.Tiles) }
func (t *Topology) NumVertices() int { return len(t.Vertices) }
func (t *Topology) NumEdges() int    { return len(t.Edges) }

// CheckTile returns ErrInvalidIndex when i is not a tile index.
func (t *Topology) CheckTile(i int) error {
	if i < 0 || i >= len(t.Tiles) {
		return fmt.Errorf("%w: tile %d of %d", ErrInvalidIndex, i, len(t.Tiles))
	}
	return nil
}

// CheckVertex returns ErrInvalidIndex when i is not a vertex index.
func (t *Topology) CheckVertex(i int) error {
	if i < 0 || i >= len(t.Vertices) {
		return fmt.Errorf("%w: vertex %d of %d", ErrInvalidIndex, i, len(t.Vertices))
	}
	return nil
}

// CheckEdge returns ErrInvalidIndex when i is not an edge index.
func (t *Topology) CheckEdge(i int) error {
	if i < 0 || i >= len(t.Edges) {
		return fmt.Errorf("%w: edge %d of %d", ErrInvalidIndex, i, len(t.Edges))
	}
	return nil
}

// IncidentEdges returns the edges touching vertex v. v must be valid.
func (t *Topology) IncidentEdges(v int) []int { return t.vertexEdges[v] }

// Neighbors returns the vertices one edge away from v. v must be valid.
func (t *Topology) Neighbors(v int) []int { return t.vertexNeighbors[v] }

// VertexTiles returns the tiles (one to three) that have v as a corner.
func (t *Topology) VertexTiles(v int) []int { return t.vertexTiles[v] }

// TileVertices returns the corners of tile i.
func (t *Topology) TileVertices(i int) []int { return t.tileVertices[i] }

// VertexAt returns the vertex at c, if any.
func (t *Topology) VertexAt(c Coord) (int, bool) {
	i, ok := t.vertexIndex[c]
	return i, ok
}

// TileAt returns the tile centred at c, if any.
func (t *Topology) TileAt(c Coord) (int, bool) {
	i, ok := t.tileIndex[c]
	return i, ok
}

// EdgeBetween returns the edge joining vertices a and b, if any.
func (t *Topology) EdgeBetween(a, b int) (int, bool) {
	i, ok := t.edgeIndex[pairKey(a, b)]
	return i, ok
}

// EdgeMidpoint returns the lattice midpoint of edge e. Adjacent vertices
// differ by an even vector, so the midpoint is always on the lattice.
func (t *Topology) EdgeMidpoint(e int) Coord {
	a := t.Vertices[t.Edges[e][0]]
	b := t.Vertices[t.Edges[e][1]]
	return Coord{Q: (a.Q + b.Q) / 2, R: (a.R + b.R) / 2}
}

// OtherEnd returns the endpoint of e that is not v.
func (t *Topology) OtherEnd(e, v int) int {
	if t.Edges[e][0] == v {
		return t.Edges[e][1]
	}
	return t.Edges[e][0]
}

// TileCorners returns the six corner positions of tile i in angular order,
// for drawing its outline.
func (t *Topology) TileCorners(i int) [6]Coord {
	var out [6]Coord
	for k, off := range cornerOffsets {
		out[k] = t.Tiles[i].Add(off)
	}
	return out
}

// ── Standard board ───────────────────────────────────────────────────

// StandardRadius is the number of tile rings around the centre tile.
const StandardRadius = 2

var (
	// Steps walked between consecutive tiles of a ring.
	tileSteps = [6]Coord{
		DirRS.Mul(2),
		DirQR.Neg().Mul(2),
		DirSQ.Mul(2),
		DirRS.Neg().Mul(2),
		DirQR.Mul(2),
		DirSQ.Neg().Mul(2),
	}
	edgeOffsets = [6]Coord{
		DirQR,
		DirSQ.Neg(),
		DirRS,
		DirQR.Neg(),
		DirSQ,
		DirRS.Neg(),
	}
	cornerOffsets = [6]Coord{
		DirQ,
		DirS.Neg(),
		DirR,
		DirQ.Neg(),
		DirS,
		DirR.Neg(),
	}
	// Half corner directions: from an edge midpoint to its endpoints,
	// selected by the cube axis whose component is a multiple of 6.
	halfCorner = [3]Coord{
		{Q: 2, R: -1},
		{Q: -1, R: 2},
		{Q: -1, R: -1},
	}
)

var (
	standardOnce sync.Once
	standardTopo *Topology
)

// Standard returns the 19-tile, 54-vertex, 72-edge board in the index order
// shared with the server. The result is built once and must not be modified.
func Standard() *Topology {
	standardOnce.Do(func() {
		t, err := BuildSpiral(StandardVersion, StandardRadius)
		if err != nil {
			panic(fmt.Sprintf("board: standard topology: %v", err))
		}
		standardTopo = t
	})
	return standardTopo
}

// BuildSpiral lays out tiles ring by ring outward from the centre. Each new
// tile contributes only the sides and corners its ring predecessors have not
// already placed, which fixes the index order.
func BuildSpiral(version string, radius int) (*Topology, error) {
	cur := Coord{}
	tiles := []Coord{cur}
	var mids, vertices []Coord
	for _, off := range edgeOffsets {
		mids = append(mids, cur.Add(off))
	}
	for _, off := range cornerOffsets {
		vertices = append(vertices, cur.Add(off))
	}

	for rad := 1; rad <= radius; rad++ {
		cur = cur.Add(DirQR.Mul(2))
		for i, step := range tileSteps {
			for j := 0; j < rad; j++ {
				cur = cur.Add(step)
				tiles = append(tiles, cur)

				last := j == rad-1
				nEdges, nCorners := 3, 2
				if last {
					nEdges, nCorners = 4, 3
				}
				for k := i; k < i+nEdges; k++ {
					mids = append(mids, cur.Add(edgeOffsets[k%6]))
				}
				for k := i; k < i+nCorners; k++ {
					vertices = append(vertices, cur.Add(cornerOffsets[k%6]))
				}
			}
		}
	}

	vertexIndex := make(map[Coord]int, len(vertices))
	for i, v := range vertices {
		vertexIndex[v] = i
	}
	edges := make([][2]int, 0, len(mids))
	for i, m := range mids {
		half, err := midpointAxis(m)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		a, okA := vertexIndex[m.Add(half)]
		b, okB := vertexIndex[m.Sub(half)]
		if !okA || !okB {
			return nil, fmt.Errorf("edge %d at %v: endpoint missing", i, m)
		}
		edges = append(edges, [2]int{a, b})
	}

	return NewTopology(version, tiles, vertices, edges)
}

func midpointAxis(m Coord) (Coord, error) {
	cube := m.Cube()
	axis := -1
	for i, v := range cube {
		if mod6(v) == 0 {
			if axis >= 0 {
				return Coord{}, fmt.Errorf("ambiguous midpoint %v", m)
			}
			axis = i
		}
	}
	if axis < 0 {
		return Coord{}, fmt.Errorf("not an edge midpoint: %v", m)
	}
	return halfCorner[axis], nil
}
