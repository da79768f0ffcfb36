package oreasset

import (
	"image"
	"image/color"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGB565(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), RGB565(color.White))
	assert.Equal(t, uint16(0), RGB565(color.Black))
	assert.Equal(t, uint16(0xF800), RGB565(color.NRGBA{R: 255, A: 255}))
	assert.Equal(t, uint16(0x07E0), RGB565(color.NRGBA{G: 255, A: 255}))
	assert.Equal(t, uint16(0x001F), RGB565(color.NRGBA{B: 255, A: 255}))
	assert.Equal(t, uint16(1<<11|1<<5|1), RGB565(color.NRGBA{R: 8, G: 4, B: 8, A: 255}))

	assert.Equal(t, Transparent, RGB565(color.NRGBA{R: 10, G: 200, B: 30, A: 127}))
	assert.Equal(t, Transparent, RGB565(color.Transparent))
	assert.Equal(t, uint16(0xFFFF), RGB565(color.NRGBA{R: 255, G: 255, B: 255, A: 128}))
}

func TestPackBits(t *testing.T) {
	assert.Equal(t, []byte{}, PackBits(nil))
	assert.Equal(t, []byte{0x01}, PackBits([]bool{true}))
	assert.Equal(t, []byte{0x81, 0x02}, PackBits([]bool{
		true, false, false, false, false, false, false, true,
		false, true,
	}))
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "const uint8_t PROGMEM textures[] = {\n  1, 0, 255\n};", Literal("textures", []byte{1, 0, 255}))
	assert.Equal(t, "const uint8_t PROGMEM levels[] = {\n  \n};", Literal("levels", nil))
}

// exportProject holds one 4x2 atlas of 16px tiles with a patch at (0,0)
func exportProject(t *testing.T) (*Project, *Atlas) {
	p := New(quietConfig(t.TempDir()))
	a := testAtlas("ground", 4, 2, 16)
	a.EnableTileset()
	require.NoError(t, a.AddPatch(image.Pt(0, 0)))
	require.NoError(t, p.AddAtlas(a))
	return p, a
}

func TestExportAtlas(t *testing.T) {
	p, _ := exportProject(t)

	data, err := ExportAtlases(p)
	require.NoError(t, err)

	pixels := 8 * 16 * 16 * 2
	require.Len(t, data, 2+4+pixels+4+2)

	assert.Equal(t, []byte{1, 0}, data[0:2])
	assert.Equal(t, []byte{8, 0, 16, 16}, data[2:6])
	assert.Equal(t, []byte{0xff, 0xff}, data[6:8])

	tail := data[6+pixels:]
	assert.Equal(t, []byte{1, 1, 1, 0}, tail[:4])
	assert.Equal(t, []byte{0, 0}, tail[4:])
}

func TestExportAtlasRasterOrder(t *testing.T) {
	p, a := exportProject(t)
	img := a.Image.(*image.NRGBA)
	// first pixel of tile 5: (1,1)
	img.Set(16, 16, color.NRGBA{R: 255, A: 255})
	// last pixel of tile 2
	img.Set(47, 15, color.Transparent)

	data, err := ExportAtlases(p)
	require.NoError(t, err)

	tile := func(i int) []byte { return data[6+i*512 : 6+(i+1)*512] }
	assert.Equal(t, []byte{0xF8, 0x00}, tile(5)[:2])
	assert.Equal(t, []byte{0xF8, 0x1F}, tile(2)[510:])
}

func TestExportColliders(t *testing.T) {
	p, a := exportProject(t)
	require.NoError(t, a.EnableColliders())
	require.NoError(t, a.SetCollider(image.Pt(1, 0), true))
	require.NoError(t, a.SetCollider(image.Pt(0, 1), true))

	data, err := ExportAtlases(p)
	require.NoError(t, err)

	tail := data[6+8*512:]
	assert.Equal(t, []byte{1, 1, 1, 1, 0x12, 0, 0}, tail)
}

func TestExportClassIndices(t *testing.T) {
	p, a := exportProject(t)
	b := testAtlas("items", 1, 1, 8)
	require.NoError(t, p.AddAtlas(b))
	require.NoError(t, p.AddClass(NewObjectClass("coin.obj", b)))
	require.NoError(t, p.AddClass(NewObjectClass("bat.obj", a)))

	data, err := ExportAtlases(p)
	require.NoError(t, err)

	// classes sort as bat, coin & atlases as ground, items
	assert.Equal(t, []byte{2, 0, 0, 0, 1, 0}, data[len(data)-6:])
}

func TestExportPlainAtlas(t *testing.T) {
	p := New(quietConfig(t.TempDir()))
	require.NoError(t, p.AddAtlas(testAtlas("plain", 1, 1, 2)))

	data, err := ExportAtlases(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 0,
		1, 0, 2, 2,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0,
		0, 0,
	}, data)
}

func TestExportLevel(t *testing.T) {
	p, a := exportProject(t)
	l := NewLevel("tiny", a, 2, 1)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(0, 0)))
	require.NoError(t, p.AddLevel(l))

	data, err := ExportLevels(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 0,
		2, 0, 1, 0,
		1, 0,
		2, 0, 0, 0,
		0, 0,
	}, data)
}

func TestExportLevelTileIDs(t *testing.T) {
	p, a := exportProject(t)
	l := NewLevel("ids", a, 2, 1)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(3, 1)))
	require.NoError(t, l.Set(image.Pt(1, 0), image.Pt(2, 0)))
	require.NoError(t, p.AddLevel(l))

	data, err := ExportLevels(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 3}, data[6:8])
}

func TestExportLevelObjects(t *testing.T) {
	p, a := exportProject(t)
	bat := NewObjectClass("bat.obj", a)
	bat.AddProperty(Property{Name: "hp", Default: "3", Type: PropInt})
	bat.AddProperty(Property{Name: "name", Default: "bat", Type: PropString})
	require.NoError(t, p.AddClass(bat))

	l := NewLevel("cave", a, 1, 1)
	o := l.AddObject(bat, image.Pt(3, 4))
	require.NoError(t, o.Set(0, "-2"))
	require.NoError(t, o.Set(1, "ab"))
	require.NoError(t, p.AddLevel(l))

	data, err := ExportLevels(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		1, 0,
		1, 0, 1, 0,
		0,
		15, 0, 0, 0,
		1, 0,
		3, 0, 4, 0, 0, 0,
		0xfe, 0xff, 0xff, 0xff,
		'a', 'b', 0,
	}, data)
}

func TestExportUnsupported(t *testing.T) {
	p, a := exportProject(t)
	bat := NewObjectClass("bat.obj", a)
	bat.AddProperty(Property{Name: "speed", Default: "1.5", Type: PropFloat})
	require.NoError(t, p.AddClass(bat))

	l := NewLevel("cave", a, 1, 1)
	l.AddObject(bat, image.Pt(0, 0))
	require.NoError(t, p.AddLevel(l))

	_, err := ExportLevels(p)
	assert.ErrorIs(t, err, ErrUnsupportedProperty)

	bat.Properties[0].Type = PropInt
	_, err = ExportLevels(p)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestExportUnknownClass(t *testing.T) {
	p, a := exportProject(t)
	l := NewLevel("cave", a, 1, 1)
	l.AddObject(NewObjectClass("stray.obj", a), image.Pt(0, 0))
	require.NoError(t, p.AddLevel(l))

	_, err := ExportLevels(p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportTileIDRange(t *testing.T) {
	p := New(quietConfig(t.TempDir()))
	a := testAtlas("wide", 300, 1, 1)
	a.EnableTileset()
	require.NoError(t, p.AddAtlas(a))
	l := NewLevel("far", a, 1, 1)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(299, 0)))
	require.NoError(t, p.AddLevel(l))

	_, err := ExportLevels(p)
	assert.ErrorIs(t, err, ErrExportRange)
}

func TestExportObjectOffLevel(t *testing.T) {
	p, a := exportProject(t)
	bat := NewObjectClass("bat.obj", a)
	require.NoError(t, p.AddClass(bat))
	l := NewLevel("cave", a, 2, 2)
	l.AddObject(bat, image.Pt(-4, 0))
	require.NoError(t, p.AddLevel(l))

	_, err := ExportLevels(p)
	assert.ErrorIs(t, err, ErrExportRange)
}

func TestExportDeterministic(t *testing.T) {
	p, a := exportProject(t)
	require.NoError(t, a.EnableColliders())
	bat := NewObjectClass("bat.obj", a)
	bat.AddProperty(Property{Name: "name", Default: "bat", Type: PropString})
	require.NoError(t, p.AddClass(bat))
	l := NewLevel("cave", a, 3, 3)
	l.AddObject(bat, image.Pt(1, 1))
	require.NoError(t, p.AddLevel(l))

	a1, err := ExportAtlases(p)
	require.NoError(t, err)
	a2, err := ExportAtlases(p)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	l1, err := ExportLevels(p)
	require.NoError(t, err)
	l2, err := ExportLevels(p)
	require.NoError(t, err)
	assert.Equal(t, l1, l2)
}
