// Package board provides the hex lattice, the static board topology, and the
// board state snapshot the server pushes every turn.
// Positions use cube coordinates (q, r, s) stored as axial (q, r).
package board

import (
	"fmt"
	"math"
)

// Coord is a position on the hex lattice. Only q and r are stored; the
// third cube coordinate is derived, so q + r + s = 0 holds by construction.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

// CubeCoord builds a Coord from all three cube components. ok is false when
// the components do not sum to zero.
func CubeCoord(q, r, s int) (c Coord, ok bool) {
	if q+r+s != 0 {
		return Coord{}, false
	}
	return Coord{Q: q, R: r}, true
}

// Cube returns the coordinate as a [q, r, s] triple.
func (c Coord) Cube() [3]int {
	return [3]int{c.Q, c.R, c.S()}
}

func (c Coord) Add(o Coord) Coord { return Coord{Q: c.Q + o.Q, R: c.R + o.R} }
func (c Coord) Sub(o Coord) Coord { return Coord{Q: c.Q - o.Q, R: c.R - o.R} }
func (c Coord) Neg() Coord        { return Coord{Q: -c.Q, R: -c.R} }
func (c Coord) Mul(k int) Coord   { return Coord{Q: c.Q * k, R: c.R * k} }

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.Q, c.R, c.S())
}

// Lattice directions. The corner directions point from a tile centre to three
// of its corners; the other three corners are their negations. The edge
// directions point from a tile centre to the midpoints of its sides.
var (
	DirQ = Coord{Q: 4, R: -2}  // (4, -2, -2)
	DirR = Coord{Q: -2, R: 4}  // (-2, 4, -2)
	DirS = Coord{Q: -2, R: -2} // (-2, -2, 4)

	DirQR = Coord{Q: 3, R: -3} // (Q - R) / 2
	DirRS = Coord{Q: 0, R: 3}  // (R - S) / 2
	DirSQ = Coord{Q: -3, R: 0} // (S - Q) / 2
)

// Lattice granularity. Tile centres sit TileSpacing apart, corners sit
// CornerDistance from their tile centre, and two vertices joined by an edge
// are VertexSpacing apart.
const (
	TileSpacing    = 6
	CornerDistance = 4
	VertexSpacing  = 4
)

// Distance returns the hex distance between two coordinates: the largest
// cube component of their difference.
func Distance(a, b Coord) int {
	d := a.Sub(b)
	return max(abs(d.Q), abs(d.R), abs(d.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Point is a position on the rendering plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var sin60 = math.Sqrt(3.0) / 2.0

// ToPlane converts a lattice coordinate to a plane point. scale is pixels per
// lattice unit and never affects adjacency or distance.
func ToPlane(c Coord, scale float64) Point {
	q := float64(c.Q)
	r := float64(c.R)
	return Point{
		X: scale * (q + r*0.5),
		Y: scale * r * sin60,
	}
}

// FromPlane inverts ToPlane, returning fractional axial components.
func FromPlane(p Point, scale float64) (q, r float64) {
	r = p.Y / (scale * sin60)
	q = p.X/scale - r*0.5
	return q, r
}

// PlaneDistance is the Euclidean distance between two plane points.
func PlaneDistance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func mod6(x int) int {
	m := x % 6
	if m < 0 {
		m += 6
	}
	return m
}
