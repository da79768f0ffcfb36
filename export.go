package oreasset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/voidshard/oreasset/binfmt"
)

// Transparent is the RGB565 colour key standing in for see-through pixels.
const Transparent uint16 = 0xF81F

var (
	// ErrUnsupportedProperty is returned when exporting a property type the
	// packed format has no encoding for (float)
	ErrUnsupportedProperty = errors.New("property type cannot be exported")

	// ErrExportRange is returned when a value doesn't fit its packed field
	ErrExportRange = errors.New("value too large for packed field")
)

// RGB565 packs c into 5/6/5 bits. Pixels less than half opaque become
// Transparent.
func RGB565(c color.Color) uint16 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A < 128 {
		return Transparent
	}
	return uint16(n.R>>3)<<11 | uint16(n.G>>2)<<5 | uint16(n.B>>3)
}

// PackBits packs flags eight to a byte, flag i*8+j in bit j of byte i. Unused
// high bits of the last byte are 0.
func PackBits(flags []bool) []byte {
	out := make([]byte, (len(flags)+7)/8)
	for i, f := range flags {
		if f {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Literal renders data as a C array definition for the target firmware.
func Literal(name string, data []byte) string {
	b := strings.Builder{}
	b.WriteString("const uint8_t PROGMEM ")
	b.WriteString(name)
	b.WriteString("[] = {\n  ")
	for i, v := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteString("\n};")
	return b.String()
}

// ExportAtlases packs every atlas (pixels, patches & colliders) followed by
// the atlas index of every object class.
func ExportAtlases(p *Project) ([]byte, error) {
	buff := &bytes.Buffer{}
	w := binfmt.NewWriter(buff)

	if err := fits(len(p.Atlases), 16, "atlas count"); err != nil {
		return nil, err
	}
	w.U16(uint16(len(p.Atlases)))
	for _, a := range p.Atlases {
		if err := exportAtlas(w, a); err != nil {
			return nil, fmt.Errorf("atlas %q: %w", a.Name, err)
		}
	}

	if err := fits(len(p.Classes), 16, "class count"); err != nil {
		return nil, err
	}
	w.U16(uint16(len(p.Classes)))
	for _, c := range p.Classes {
		i := p.AtlasIndex(c.Atlas)
		if i < 0 {
			return nil, fmt.Errorf("class %q: atlas: %w", c.Name, ErrNotFound)
		}
		w.U16(uint16(i))
	}

	return buff.Bytes(), w.Err()
}

func exportAtlas(w *binfmt.Writer, a *Atlas) error {
	n := a.Tiles()
	if err := fits(n, 16, "tile count"); err != nil {
		return err
	}
	if err := fits(a.TileSize.X, 8, "tile width"); err != nil {
		return err
	}
	if err := fits(a.TileSize.Y, 8, "tile height"); err != nil {
		return err
	}

	w.U16(uint16(n))
	w.U8(uint8(a.TileSize.X))
	w.U8(uint8(a.TileSize.Y))

	for i := 0; i < n; i++ {
		origin := a.rasterOrigin(i)
		for y := 0; y < a.TileSize.Y; y++ {
			for x := 0; x < a.TileSize.X; x++ {
				px := RGB565(a.Image.At(origin.X+x, origin.Y+y))
				w.U8(uint8(px >> 8))
				w.U8(uint8(px))
			}
		}
	}

	w.Bool(a.Tileset != nil)
	if a.Tileset == nil {
		return w.Err()
	}

	if err := fits(len(a.Tileset.Patches), 8, "patch count"); err != nil {
		return err
	}
	w.U8(uint8(len(a.Tileset.Patches)))
	for _, patch := range a.Tileset.Patches {
		id := a.ToIndex(patch) + 1
		if err := fits(id, 8, "patch id"); err != nil {
			return err
		}
		w.U8(uint8(id))
	}

	w.Bool(a.Tileset.Colliders != nil)
	if a.Tileset.Colliders != nil {
		flags := a.Tileset.Colliders
		if len(flags) != n {
			flags = fitColliders(flags, a.Width(), len(flags)/max(a.Width(), 1), a.Width(), a.Height())
		}
		w.Bytes(PackBits(flags))
	}
	return w.Err()
}

// ExportLevels packs every level: tile ids, then a byte counted object
// section.
func ExportLevels(p *Project) ([]byte, error) {
	buff := &bytes.Buffer{}
	w := binfmt.NewWriter(buff)

	if err := fits(len(p.Levels), 16, "level count"); err != nil {
		return nil, err
	}
	w.U16(uint16(len(p.Levels)))
	for _, l := range p.Levels {
		if err := exportLevel(w, p, l); err != nil {
			return nil, fmt.Errorf("level %q: %w", l.Name, err)
		}
	}
	return buff.Bytes(), w.Err()
}

func exportLevel(w *binfmt.Writer, p *Project, l *Level) error {
	if l.Tileset == nil {
		return ErrNoAtlas
	}
	if err := fits(l.Width, 16, "width"); err != nil {
		return err
	}
	if err := fits(l.Height, 16, "height"); err != nil {
		return err
	}
	w.U16(uint16(l.Width))
	w.U16(uint16(l.Height))

	// ids follow the image raster, which may hold a partial tile column
	stride := l.Tileset.Image.Bounds().Dx() / l.Tileset.TileSize.X
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			t := l.At(image.Pt(x, y))
			if t == Empty {
				w.U8(0)
				continue
			}
			id := t.X + t.Y*stride + 1
			if err := fits(id, 8, "tile id"); err != nil {
				return fmt.Errorf("cell %d,%d: %w", x, y, err)
			}
			w.U8(uint8(id))
		}
	}

	objects, err := exportObjects(p, l.Objects)
	if err != nil {
		return err
	}
	w.U32(uint32(len(objects)))
	w.Bytes(objects)
	return w.Err()
}

// exportObjects packs the object section of a level so its size can be
// written ahead of it.
func exportObjects(p *Project, objects []*Object) ([]byte, error) {
	buff := &bytes.Buffer{}
	w := binfmt.NewWriter(buff)

	if err := fits(len(objects), 16, "object count"); err != nil {
		return nil, err
	}
	w.U16(uint16(len(objects)))
	for n, o := range objects {
		class := p.ClassIndex(o.Class)
		if class < 0 {
			return nil, fmt.Errorf("object %d: class %q: %w", n, o.Class.Name, ErrNotFound)
		}
		if err := fits(o.Pos.X, 16, "x"); err != nil {
			return nil, fmt.Errorf("object %d: %w", n, err)
		}
		if err := fits(o.Pos.Y, 16, "y"); err != nil {
			return nil, fmt.Errorf("object %d: %w", n, err)
		}
		w.U16(uint16(o.Pos.X))
		w.U16(uint16(o.Pos.Y))
		w.U16(uint16(class))

		for i, prop := range o.Class.Properties {
			value := prop.Default
			if i < len(o.Values) {
				value = o.Values[i]
			}
			switch prop.Type {
			case PropInt:
				v, err := parseInt(value)
				if err != nil {
					return nil, fmt.Errorf("object %d: property %q: %w", n, prop.Name, err)
				}
				w.I32(v)
			case PropString:
				w.String(value)
			default:
				return nil, fmt.Errorf("object %d: property %q (%s): %w", n, prop.Name, prop.Type, ErrUnsupportedProperty)
			}
		}
	}
	return buff.Bytes(), w.Err()
}

// fits checks v is a non negative value of at most bits width
func fits(v, bits int, field string) error {
	if v < 0 || v >= 1<<uint(bits) {
		return fmt.Errorf("%w: %s %d in %d bits", ErrExportRange, field, v, bits)
	}
	return nil
}
