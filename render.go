package oreasset

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
)

// RenderOptions tweaks a level preview.
type RenderOptions struct {
	// Scale is a whole number zoom applied last, with nearest neighbour
	// sampling. Below 1 means 1.
	Scale int

	// Colliders tints tiles flagged as colliders
	Colliders bool

	// Grid outlines every cell
	Grid bool
}

// Render draws a preview of l the way the target draws it: plain tiles whole,
// patch tiles stitched from four resolved quadrants, objects as the first
// tile of their class atlas.
func Render(l *Level, opts *RenderOptions) (image.Image, error) {
	if l.Tileset == nil || l.Tileset.Image == nil {
		return nil, fmt.Errorf("%s: %w", l.Name, ErrNoAtlas)
	}
	if opts == nil {
		opts = &RenderOptions{}
	}

	ts := l.Tileset.TileSize
	dc := gg.NewContext(l.Width*ts.X, l.Height*ts.Y)

	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			pos := image.Pt(x, y)
			tile := l.At(pos)
			if tile == Empty {
				continue
			}
			px, py := x*ts.X, y*ts.Y

			if rects, ok := ResolvePatchTile(l, pos); ok {
				for i, q := range Quadrants {
					o := q.Offset()
					dc.DrawImage(cutOut(l.Tileset.Image, rects[i]), px+o.X*ts.X/2, py+o.Y*ts.Y/2)
				}
			} else if l.Tileset.InBounds(tile) {
				dc.DrawImage(cutOut(l.Tileset.Image, l.Tileset.TileRect(tile)), px, py)
			}

			if opts.Colliders && l.Tileset.Collider(tile) {
				dc.SetRGBA(1, 0, 0, 0.35)
				dc.DrawRectangle(float64(px), float64(py), float64(ts.X), float64(ts.Y))
				dc.Fill()
			}
		}
	}

	for _, o := range l.Objects {
		a := o.Class.Atlas
		if a == nil || a.Image == nil || a.Tiles() == 0 {
			dc.SetRGB(1, 0, 1)
			dc.DrawRectangle(float64(o.Pos.X), float64(o.Pos.Y), float64(ts.X), float64(ts.Y))
			dc.Stroke()
			continue
		}
		dc.DrawImage(cutOut(a.Image, a.TileRect(image.Pt(0, 0))), o.Pos.X, o.Pos.Y)
	}

	if opts.Grid {
		dc.SetRGBA(0, 0, 0, 0.25)
		dc.SetLineWidth(1)
		for x := 0; x <= l.Width; x++ {
			dc.DrawLine(float64(x*ts.X), 0, float64(x*ts.X), float64(l.Height*ts.Y))
		}
		for y := 0; y <= l.Height; y++ {
			dc.DrawLine(0, float64(y*ts.Y), float64(l.Width*ts.X), float64(y*ts.Y))
		}
		dc.Stroke()
	}

	out := dc.Image()
	if opts.Scale > 1 {
		b := out.Bounds()
		out = resize.Resize(uint(b.Dx()*opts.Scale), uint(b.Dy()*opts.Scale), out, resize.NearestNeighbor)
	}
	return out, nil
}
