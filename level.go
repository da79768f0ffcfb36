package oreasset

import (
	"fmt"
	"image"
	"io"

	"github.com/voidshard/oreasset/binfmt"
)

// Empty marks a grid cell with no tile.
var Empty = image.Pt(-1, -1)

// Level is a grid of tiles from one atlas plus the objects placed on it.
type Level struct {
	Name    string
	Tileset *Atlas

	// in tiles
	Width  int
	Height int

	// Data holds the atlas tile of every cell, row major, or Empty
	Data []image.Point

	Objects []*Object
}

// NewLevel returns an empty level of w x h tiles.
func NewLevel(name string, tileset *Atlas, w, h int) *Level {
	l := &Level{Name: name, Tileset: tileset, Width: w, Height: h}
	l.Data = make([]image.Point, w*h)
	for i := range l.Data {
		l.Data[i] = Empty
	}
	return l
}

// Size in tiles
func (l *Level) Size() image.Point {
	return image.Pt(l.Width, l.Height)
}

// InBounds implements Grid
func (l *Level) InBounds(pos image.Point) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X < l.Width && pos.Y < l.Height
}

// At implements Grid. Cells outside the level are Empty.
func (l *Level) At(pos image.Point) image.Point {
	if !l.InBounds(pos) {
		return Empty
	}
	return l.Data[pos.X+pos.Y*l.Width]
}

// Set the tile at pos. tile must be Empty or inside the tileset grid.
func (l *Level) Set(pos, tile image.Point) error {
	if !l.InBounds(pos) {
		return fmt.Errorf("%w: cell %v of %s", ErrOutOfBounds, pos, l.Name)
	}
	if tile != Empty && l.Tileset != nil && !l.Tileset.InBounds(tile) {
		return fmt.Errorf("%w: tile %v of %s", ErrOutOfBounds, tile, l.Tileset.Name)
	}
	l.Data[pos.X+pos.Y*l.Width] = tile
	return nil
}

// Resize the grid keeping tiles anchored to the bottom left corner, which is
// where levels are built up from.
func (l *Level) Resize(w, h int) error {
	if w < 1 || h < 1 || w > maxGrid || h > maxGrid {
		return fmt.Errorf("%s: invalid size %dx%d", l.Name, w, h)
	}
	if w == l.Width && h == l.Height {
		return nil
	}
	data := make([]image.Point, w*h)
	for i := range data {
		data[i] = Empty
	}
	for x := 0; x < l.Width && x < w; x++ {
		for y := 0; y < l.Height && y < h; y++ {
			data[x+(h-y-1)*w] = l.Data[x+(l.Height-y-1)*l.Width]
		}
	}
	l.Data = data
	l.Width, l.Height = w, h
	return nil
}

// AddObject places a new object of class c at pos (pixels).
func (l *Level) AddObject(c *ObjectClass, pos image.Point) *Object {
	o := NewObject(c, pos)
	l.Objects = append(l.Objects, o)
	return o
}

// RemoveObject removes & releases the i'th object.
func (l *Level) RemoveObject(i int) error {
	if i < 0 || i >= len(l.Objects) {
		return fmt.Errorf("%s: object %d out of range", l.Name, i)
	}
	l.Objects[i].Release()
	l.Objects = append(l.Objects[:i], l.Objects[i+1:]...)
	return nil
}

// ObjectAt returns the index of the first object whose box (one tile of its
// class atlas) contains the pixel pos.
func (l *Level) ObjectAt(pos image.Point) (int, bool) {
	for i, o := range l.Objects {
		size := image.Pt(1, 1)
		if o.Class.Atlas != nil {
			size = o.Class.Atlas.TileSize
		}
		if pos.In(image.Rectangle{Min: o.Pos, Max: o.Pos.Add(size)}) {
			return i, true
		}
	}
	return -1, false
}

// Release deregisters every object from its class. Call it when dropping
// the level.
func (l *Level) Release() {
	for _, o := range l.Objects {
		o.Release()
	}
}

// Validate checks tiles lie within the tileset & objects have a class with
// matching properties.
func (l *Level) Validate() error {
	if l.Tileset == nil {
		return fmt.Errorf("%s: %w", l.Name, ErrNoAtlas)
	}
	if len(l.Data) != l.Width*l.Height {
		return fmt.Errorf("%s: %d cells for a %dx%d grid", l.Name, len(l.Data), l.Width, l.Height)
	}
	for i, t := range l.Data {
		if t != Empty && !l.Tileset.InBounds(t) {
			return fmt.Errorf("%w: %s cell %d holds %v", ErrOutOfBounds, l.Name, i, t)
		}
	}
	for i, o := range l.Objects {
		if o.Class == nil {
			return fmt.Errorf("%s: object %d has no class", l.Name, i)
		}
		if len(o.Values) != len(o.Class.Properties) {
			return fmt.Errorf("%s: object %d has %d values, %s has %d properties",
				l.Name, i, len(o.Values), o.Class.Name, len(o.Class.Properties))
		}
	}
	return nil
}

// ClassResolver finds an object class by name for a decoder.
type ClassResolver func(name string) (*ObjectClass, bool)

// EncodeLevel writes the .lvl record of l.
func EncodeLevel(w io.Writer, l *Level) error {
	if l.Tileset == nil {
		return fmt.Errorf("%s: %w", l.Name, ErrNoAtlas)
	}

	data := make([]byte, 0, len(l.Data)*8)
	for _, t := range l.Data {
		data = binfmt.Order.AppendUint32(data, uint32(int32(t.X)))
		data = binfmt.Order.AppendUint32(data, uint32(int32(t.Y)))
	}

	err := binfmt.Write(w, "%32i %32i %s %b %16i",
		l.Width, l.Height, l.Tileset.Name, data, len(data), len(l.Objects))
	if err != nil {
		return err
	}

	bw := binfmt.NewWriter(w)
	for _, o := range l.Objects {
		bw.I32(int32(o.Pos.X))
		bw.I32(int32(o.Pos.Y))
		bw.String(o.Class.Name)
		bw.U16(uint16(len(o.Values)))
		for _, v := range o.Values {
			bw.String(v)
		}
	}
	return bw.Err()
}

// DecodeLevel reads the .lvl record of the level called name.
//
// Objects whose class can't be resolved are left out; their class names are
// returned so the caller can report them. Values are aligned to the class
// schema (missing ones take the default, extra ones are dropped).
func DecodeLevel(r io.Reader, name string, atlases AtlasResolver, classes ClassResolver) (*Level, []string, error) {
	br := binfmt.NewReader(r)

	var (
		uw, uh      uint32
		tilesetName string
		nObjects    uint16
	)
	if err := binfmt.Read(br, "%32i %32i %s", &uw, &uh, &tilesetName); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	if uw > maxGrid || uh > maxGrid || uint64(uw)*uint64(uh) > maxTiles {
		return nil, nil, fmt.Errorf("%s: %dx%d grid: %w", name, uw, uh, ErrCorrupt)
	}
	w, h := int(uw), int(uh)

	tileset, err := atlases(tilesetName)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	data := make([]byte, w*h*8)
	if err := binfmt.Read(br, "%b %16i", data, len(data), &nObjects); err != nil && br.Err() == nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	l := &Level{Name: name, Tileset: tileset, Width: w, Height: h, Data: make([]image.Point, w*h)}
	for i := range l.Data {
		l.Data[i] = image.Pt(
			int(int32(binfmt.Order.Uint32(data[i*8:]))),
			int(int32(binfmt.Order.Uint32(data[i*8+4:]))),
		)
	}

	dropped := []string{}
	for i := 0; i < int(nObjects) && br.Err() == nil; i++ {
		var (
			x, y      int32
			className string
			nValues   uint16
		)
		if err := binfmt.Read(br, "%32i %32i %s %16i", &x, &y, &className, &nValues); err != nil && br.Err() == nil {
			return nil, nil, fmt.Errorf("%s: object %d: %w", name, i, err)
		}
		values := make([]string, nValues)
		for j := range values {
			values[j] = br.String()
		}
		if br.Err() != nil {
			break
		}

		class, ok := classes(className)
		if !ok {
			dropped = append(dropped, className)
			continue
		}
		for j := len(values); j < len(class.Properties); j++ {
			values = append(values, class.Properties[j].Default)
		}
		l.Objects = append(l.Objects, class.adopt(image.Pt(int(x), int(y)), values[:len(class.Properties)]))
	}

	return l, dropped, br.Err()
}
