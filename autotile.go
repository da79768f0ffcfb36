package oreasset

import "image"

// Quadrant is one quarter of a tile. Each quarter of a patch tile is
// resolved on its own so four variants can be stitched into one tile.
type Quadrant int

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

// Quadrants in drawing order
var Quadrants = [4]Quadrant{TopLeft, TopRight, BottomLeft, BottomRight}

// Variant columns within a patch, by which neighbours continue the shape.
const (
	VariantInterior = 0 // both neighbours continue
	VariantCorner   = 1 // neither neighbour continues
	VariantEdgeY    = 2 // only the horizontal neighbour continues
	VariantEdgeX    = 3 // only the vertical neighbour continues
)

// Offset is the quadrant position in half tiles: (0|1, 0|1).
func (q Quadrant) Offset() image.Point {
	return image.Pt(int(q)&1, int(q)>>1)
}

// Dir points from the tile centre towards the quadrant corner: (-1|1, -1|1).
func (q Quadrant) Dir() image.Point {
	o := q.Offset()
	return image.Pt(o.X*2-1, o.Y*2-1)
}

// ResolveQuadrant picks the patch column (0..3) to sample for quadrant q of
// the patch tile at pos. It looks at the horizontal & vertical neighbours on
// the quadrant's side; a neighbour continues the shape if it is drawn from
// the same patch. Cells outside the grid never continue it.
//
// ok is false if the tile at pos isn't part of a patch of ts.
func ResolveQuadrant(grid Grid, ts *Tileset, pos image.Point, q Quadrant) (column int, ok bool) {
	if ts == nil {
		return 0, false
	}
	origin, ok := ts.Patch(grid.At(pos))
	if !ok {
		return 0, false
	}

	same := func(n image.Point) bool {
		if !grid.InBounds(n) {
			return false
		}
		p, ok := ts.Patch(grid.At(n))
		return ok && p == origin
	}

	d := q.Dir()
	sameX := same(pos.Add(image.Pt(d.X, 0)))
	sameY := same(pos.Add(image.Pt(0, d.Y)))

	switch {
	case !sameX && sameY:
		return VariantEdgeX, true
	case !sameX:
		return VariantCorner, true
	case !sameY:
		return VariantEdgeY, true
	}
	return VariantInterior, true
}

// QuadrantSource returns the half tile of atlas a holding quadrant q of the
// given column of the patch starting at origin.
func QuadrantSource(a *Atlas, origin image.Point, column int, q Quadrant) image.Rectangle {
	half := image.Pt(a.TileSize.X/2, a.TileSize.Y/2)
	o := q.Offset()
	min := image.Pt(
		((origin.X+column)*2+o.X)*half.X,
		(origin.Y*2+o.Y)*half.Y,
	).Add(a.Image.Bounds().Min)
	return image.Rectangle{Min: min, Max: min.Add(half)}
}

// ResolvePatchTile returns the source rectangles of all four quadrants (in
// Quadrants order) for the patch tile at pos of level l.
func ResolvePatchTile(l *Level, pos image.Point) ([4]image.Rectangle, bool) {
	var out [4]image.Rectangle
	if l.Tileset == nil || l.Tileset.Tileset == nil {
		return out, false
	}
	origin, ok := l.Tileset.Tileset.Patch(l.At(pos))
	if !ok {
		return out, false
	}
	for i, q := range Quadrants {
		column, _ := ResolveQuadrant(l, l.Tileset.Tileset, pos, q)
		out[i] = QuadrantSource(l.Tileset, origin, column, q)
	}
	return out, true
}
