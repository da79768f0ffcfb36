package oreasset

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/voidshard/oreasset/binfmt"
)

const (
	// PatchWidth is how many tile columns one patch reserves.
	PatchWidth = 4

	// bounds on any grid read back from disk
	maxGrid  = 1 << 16
	maxTiles = 1 << 24
)

var (
	// ErrPatchOverlap is returned when a new patch would share a column with
	// an existing one on the same row
	ErrPatchOverlap = errors.New("patch overlaps an existing patch")

	// ErrOutOfBounds is returned for tiles outside a grid
	ErrOutOfBounds = errors.New("tile out of bounds")

	// ErrCorrupt is returned for records whose sizes cannot be right
	ErrCorrupt = errors.New("corrupt record")

	// ErrNoTileset is returned for tileset operations on a plain atlas
	ErrNoTileset = errors.New("atlas has no tileset")
)

// Atlas is an image cut into a regular grid of tiles.
type Atlas struct {
	Name     string
	TileSize image.Point
	Image    image.Image

	// Tileset is nil unless auto-tiling / collision is enabled
	Tileset *Tileset
}

// Tileset is the optional auto-tile & collision data of an atlas.
type Tileset struct {
	// Patches holds the first tile of each 4 wide patch
	Patches []image.Point

	// Colliders is nil or holds one flag per atlas tile, row major
	Colliders []bool
}

// NewAtlas returns an atlas without a tileset.
func NewAtlas(name string, tileSize image.Point, img image.Image) *Atlas {
	return &Atlas{Name: name, TileSize: tileSize, Image: img}
}

// Width in tiles
func (a *Atlas) Width() int {
	if a.Image == nil || a.TileSize.X < 1 {
		return 0
	}
	return a.Image.Bounds().Dx() / a.TileSize.X
}

// Height in tiles
func (a *Atlas) Height() int {
	if a.Image == nil || a.TileSize.Y < 1 {
		return 0
	}
	return a.Image.Bounds().Dy() / a.TileSize.Y
}

// Size in tiles
func (a *Atlas) Size() image.Point {
	return image.Pt(a.Width(), a.Height())
}

// Tiles is the number of tiles in the grid
func (a *Atlas) Tiles() int {
	return a.Width() * a.Height()
}

// ToIndex returns the row major index of tile.
func (a *Atlas) ToIndex(tile image.Point) int {
	return tile.X + tile.Y*a.Width()
}

// InBounds reports if tile is inside the tile grid.
func (a *Atlas) InBounds(tile image.Point) bool {
	return tile.X >= 0 && tile.Y >= 0 && tile.X < a.Width() && tile.Y < a.Height()
}

// TileRect returns the pixel rectangle of tile in the image.
func (a *Atlas) TileRect(tile image.Point) image.Rectangle {
	min := a.Image.Bounds().Min.Add(image.Pt(tile.X*a.TileSize.X, tile.Y*a.TileSize.Y))
	return image.Rectangle{Min: min, Max: min.Add(a.TileSize)}
}

// rasterOrigin returns the top left pixel of the i'th tile walking the image
// in raster order (left to right, wrapping at the image width).
func (a *Atlas) rasterOrigin(i int) image.Point {
	w := a.Image.Bounds().Dx()
	x := i * a.TileSize.X
	return a.Image.Bounds().Min.Add(image.Pt(x%w, x/w*a.TileSize.Y))
}

// EnableTileset gives the atlas an empty tileset, if it has none.
func (a *Atlas) EnableTileset() *Tileset {
	if a.Tileset == nil {
		a.Tileset = &Tileset{}
	}
	return a.Tileset
}

// DisableTileset drops patches & colliders.
func (a *Atlas) DisableTileset() {
	a.Tileset = nil
}

// EnableColliders allocates a cleared collider map.
func (a *Atlas) EnableColliders() error {
	if a.Tileset == nil {
		return ErrNoTileset
	}
	if a.Tileset.Colliders == nil {
		a.Tileset.Colliders = make([]bool, a.Tiles())
	}
	return nil
}

// DisableColliders drops the collider map.
func (a *Atlas) DisableColliders() {
	if a.Tileset != nil {
		a.Tileset.Colliders = nil
	}
}

// HasColliders reports if a collider map is allocated.
func (a *Atlas) HasColliders() bool {
	return a.Tileset != nil && a.Tileset.Colliders != nil
}

// Collider reports if tile is flagged as a collider.
func (a *Atlas) Collider(tile image.Point) bool {
	if !a.HasColliders() || !a.InBounds(tile) {
		return false
	}
	return a.Tileset.Colliders[a.ToIndex(tile)]
}

// SetCollider flags (or clears) tile as a collider.
func (a *Atlas) SetCollider(tile image.Point, on bool) error {
	if !a.HasColliders() {
		return ErrNoTileset
	}
	if !a.InBounds(tile) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, tile)
	}
	a.Tileset.Colliders[a.ToIndex(tile)] = on
	return nil
}

// SetImage swaps the backing image. A collider map is refitted to the new
// grid keeping the overlapping tiles.
func (a *Atlas) SetImage(img image.Image) {
	oldW, oldH := a.Width(), a.Height()
	a.Image = img
	if a.HasColliders() {
		a.Tileset.Colliders = fitColliders(a.Tileset.Colliders, oldW, oldH, a.Width(), a.Height())
	}
}

// Patch returns the origin of the patch covering tile.
func (t *Tileset) Patch(tile image.Point) (image.Point, bool) {
	for _, p := range t.Patches {
		if covers(p, tile) {
			return p, true
		}
	}
	return Empty, false
}

// InPatch reports if tile is covered by a patch.
func (t *Tileset) InPatch(tile image.Point) bool {
	_, ok := t.Patch(tile)
	return ok
}

// AddPatch adds a patch starting at origin.
func (t *Tileset) AddPatch(origin image.Point) error {
	for _, p := range t.Patches {
		if p.Y == origin.Y && p.X-origin.X < PatchWidth && origin.X-p.X < PatchWidth {
			return fmt.Errorf("%w: %v and %v", ErrPatchOverlap, origin, p)
		}
	}
	t.Patches = append(t.Patches, origin)
	return nil
}

// RemovePatch removes the patch covering tile, reporting if there was one.
func (t *Tileset) RemovePatch(tile image.Point) bool {
	for i, p := range t.Patches {
		if covers(p, tile) {
			t.Patches = append(t.Patches[:i], t.Patches[i+1:]...)
			return true
		}
	}
	return false
}

// covers reports if the patch starting at origin includes tile
func covers(origin, tile image.Point) bool {
	return tile.Y == origin.Y && tile.X >= origin.X && tile.X < origin.X+PatchWidth
}

// AddPatch adds a patch to the atlas tileset, checking it fits in the grid.
func (a *Atlas) AddPatch(origin image.Point) error {
	if a.Tileset == nil {
		return ErrNoTileset
	}
	if !a.InBounds(origin) || !a.InBounds(origin.Add(image.Pt(PatchWidth-1, 0))) {
		return fmt.Errorf("%w: patch at %v", ErrOutOfBounds, origin)
	}
	return a.Tileset.AddPatch(origin)
}

// fitColliders copies the overlapping rectangle of a (w0 x h0) collider map
// into a new cleared (w1 x h1) one.
func fitColliders(in []bool, w0, h0, w1, h1 int) []bool {
	out := make([]bool, w1*h1)
	for y := 0; y < h0 && y < h1; y++ {
		for x := 0; x < w0 && x < w1; x++ {
			if i := x + y*w0; i < len(in) {
				out[x+y*w1] = in[i]
			}
		}
	}
	return out
}

// EncodeAtlas writes the .atl record of a. The image is not included.
func EncodeAtlas(w io.Writer, a *Atlas) error {
	bw := binfmt.NewWriter(w)
	bw.I32(int32(a.TileSize.X))
	bw.I32(int32(a.TileSize.Y))

	bw.Bool(a.Tileset != nil)
	if a.Tileset == nil {
		return bw.Err()
	}

	bw.U16(uint16(len(a.Tileset.Patches)))
	for _, p := range a.Tileset.Patches {
		bw.I32(int32(p.X))
		bw.I32(int32(p.Y))
	}

	bw.Bool(a.Tileset.Colliders != nil)
	if a.Tileset.Colliders != nil {
		width, height := a.Width(), a.Height()
		colliders := a.Tileset.Colliders
		if len(colliders) != width*height {
			// never expected after SetImage, but the record must match w*h
			colliders = fitColliders(colliders, width, len(colliders)/max(width, 1), width, height)
		}

		bw.U32(uint32(width))
		bw.U32(uint32(height))
		flags := make([]byte, len(colliders))
		for i, c := range colliders {
			if c {
				flags[i] = 1
			}
		}
		bw.Bytes(flags)
	}
	return bw.Err()
}

// DecodeAtlas reads a .atl record into a, whose Image must already be set so
// the collider map can be fitted to the current grid.
//
// A collider map saved for a different grid size is not an error: the
// overlapping tiles are kept and the rest cleared. A truncated record yields
// zeroed fields and io.ErrUnexpectedEOF, with whatever was read applied.
func DecodeAtlas(r io.Reader, a *Atlas) error {
	br := binfmt.NewReader(r)
	a.TileSize = image.Pt(int(br.I32()), int(br.I32()))
	a.Tileset = nil

	if !br.Bool() {
		return br.Err()
	}
	a.Tileset = &Tileset{}

	n := int(br.U16())
	if n > 0 {
		a.Tileset.Patches = make([]image.Point, n)
		for i := range a.Tileset.Patches {
			a.Tileset.Patches[i] = image.Pt(int(br.I32()), int(br.I32()))
		}
	}

	if br.Bool() {
		w := int(br.U32())
		h := int(br.U32())
		if w > maxGrid || h > maxGrid || w*h > maxTiles {
			return fmt.Errorf("collider map %dx%d: %w", w, h, ErrCorrupt)
		}
		stored := make([]bool, 0, w*h)
		if br.Err() == nil {
			for _, b := range br.Bytes(w * h) {
				stored = append(stored, b != 0)
			}
		}
		a.Tileset.Colliders = fitColliders(stored, w, h, a.Width(), a.Height())
	}
	return br.Err()
}
