package board

// Hit testing for the presentation shell: maps a clicked plane point back to
// the nearest element within maxDist pixels.

// NearestVertex returns the vertex closest to p.
func (t *Topology) NearestVertex(p Point, scale, maxDist float64) (int, bool) {
	return nearest(len(t.Vertices), p, maxDist, func(i int) Point {
		return ToPlane(t.Vertices[i], scale)
	})
}

// NearestEdge returns the edge whose midpoint is closest to p.
func (t *Topology) NearestEdge(p Point, scale, maxDist float64) (int, bool) {
	return nearest(len(t.Edges), p, maxDist, func(i int) Point {
		return ToPlane(t.EdgeMidpoint(i), scale)
	})
}

// NearestTile returns the tile whose centre is closest to p.
func (t *Topology) NearestTile(p Point, scale, maxDist float64) (int, bool) {
	return nearest(len(t.Tiles), p, maxDist, func(i int) Point {
		return ToPlane(t.Tiles[i], scale)
	})
}

func nearest(n int, p Point, maxDist float64, at func(int) Point) (int, bool) {
	best := -1
	bestDist := maxDist
	for i := 0; i < n; i++ {
		if d := PlaneDistance(p, at(i)); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}
