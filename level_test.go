package oreasset

import (
	"bytes"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/oreasset/binfmt"
)

// levelFixture is a 3x2 level with two objects of class "bat"
func levelFixture(t *testing.T) (*Level, *ObjectClass) {
	tileset := testAtlas("ground", 8, 2, 16)
	tileset.EnableTileset()

	bat := NewObjectClass("bat.obj", tileset)
	bat.AddProperty(Property{Name: "hp", Default: "3", Type: PropInt})
	bat.AddProperty(Property{Name: "name", Default: "bat", Type: PropString})

	l := NewLevel("cave", tileset, 3, 2)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(1, 0)))
	require.NoError(t, l.Set(image.Pt(2, 1), image.Pt(7, 1)))

	l.AddObject(bat, image.Pt(5, 6))
	o := l.AddObject(bat, image.Pt(-2, 40))
	require.NoError(t, o.Set(1, "boss"))
	return l, bat
}

func TestNewLevelIsEmpty(t *testing.T) {
	l := NewLevel("blank", testAtlas("a", 1, 1, 8), 2, 3)

	assert.Len(t, l.Data, 6)
	for _, tile := range l.Data {
		assert.Equal(t, Empty, tile)
	}
	assert.Equal(t, Empty, l.At(image.Pt(5, 5)))
	assert.NoError(t, l.Validate())
}

func TestLevelSet(t *testing.T) {
	l := NewLevel("blank", testAtlas("a", 2, 2, 8), 2, 2)

	assert.NoError(t, l.Set(image.Pt(1, 1), image.Pt(1, 0)))
	assert.Equal(t, image.Pt(1, 0), l.At(image.Pt(1, 1)))
	assert.ErrorIs(t, l.Set(image.Pt(2, 0), image.Pt(0, 0)), ErrOutOfBounds)
	assert.ErrorIs(t, l.Set(image.Pt(0, 0), image.Pt(2, 0)), ErrOutOfBounds)
	assert.NoError(t, l.Set(image.Pt(1, 1), Empty))
	assert.Equal(t, Empty, l.At(image.Pt(1, 1)))
}

func TestLevelBytes(t *testing.T) {
	l := NewLevel("tiny", testAtlas("ts", 4, 1, 16), 2, 1)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(0, 0)))

	buf := bytes.Buffer{}
	require.NoError(t, EncodeLevel(&buf, l))

	want := []byte{2, 0, 0, 0, 1, 0, 0, 0, 't', 's', 0}
	want = append(want, 0, 0, 0, 0, 0, 0, 0, 0)
	want = append(want, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	want = append(want, 0, 0)
	assert.Equal(t, want, buf.Bytes())
}

func TestLevelRoundTrip(t *testing.T) {
	l, bat := levelFixture(t)

	buf := bytes.Buffer{}
	require.NoError(t, EncodeLevel(&buf, l))

	got, dropped, err := DecodeLevel(&buf, "cave",
		func(name string) (*Atlas, error) { return l.Tileset, nil },
		func(name string) (*ObjectClass, bool) { return bat, name == "bat" },
	)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	assert.Equal(t, l.Width, got.Width)
	assert.Equal(t, l.Height, got.Height)
	assert.Equal(t, l.Data, got.Data)
	require.Len(t, got.Objects, 2)
	for i, o := range got.Objects {
		assert.Equal(t, l.Objects[i].Pos, o.Pos)
		assert.Equal(t, l.Objects[i].Values, o.Values)
		assert.Equal(t, bat, o.Class)
	}

	// decoded objects are registered with their class as well
	assert.Len(t, bat.Children(), 4)
	assert.NoError(t, got.Validate())
}

func TestDecodeLevelDropsUnknownClasses(t *testing.T) {
	l, bat := levelFixture(t)
	ghost := NewObjectClass("ghost.obj", l.Tileset)
	l.AddObject(ghost, image.Pt(1, 1))

	buf := bytes.Buffer{}
	require.NoError(t, EncodeLevel(&buf, l))

	got, dropped, err := DecodeLevel(&buf, "cave",
		func(name string) (*Atlas, error) { return l.Tileset, nil },
		func(name string) (*ObjectClass, bool) {
			if name == "bat" {
				return bat, true
			}
			return nil, false
		},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, dropped)
	assert.Len(t, got.Objects, 2)
}

func TestDecodeLevelAlignsValues(t *testing.T) {
	tileset := testAtlas("ts", 1, 1, 8)
	bat := NewObjectClass("bat.obj", tileset)
	bat.AddProperty(Property{Name: "hp", Default: "3", Type: PropInt})
	bat.AddProperty(Property{Name: "name", Default: "bat", Type: PropString})

	buf := bytes.Buffer{}
	w := binfmt.NewWriter(&buf)
	w.U32(1)
	w.U32(1)
	w.String("ts")
	w.I32(-1)
	w.I32(-1)
	w.U16(2)
	// one value short
	w.I32(0)
	w.I32(0)
	w.String("bat")
	w.U16(1)
	w.String("9")
	// one value over
	w.I32(8)
	w.I32(8)
	w.String("bat")
	w.U16(3)
	w.String("1")
	w.String("imp")
	w.String("extra")
	require.NoError(t, w.Err())

	got, _, err := DecodeLevel(&buf, "one",
		func(string) (*Atlas, error) { return tileset, nil },
		func(string) (*ObjectClass, bool) { return bat, true },
	)
	require.NoError(t, err)
	require.Len(t, got.Objects, 2)
	assert.Equal(t, []string{"9", "bat"}, got.Objects[0].Values)
	assert.Equal(t, []string{"1", "imp"}, got.Objects[1].Values)
}

func TestDecodeLevelTruncatedObject(t *testing.T) {
	l, bat := levelFixture(t)
	buf := bytes.Buffer{}
	require.NoError(t, EncodeLevel(&buf, l))
	data := buf.Bytes()

	// cut inside the last value of the second object
	got, dropped, err := DecodeLevel(bytes.NewReader(data[:len(data)-4]), "cave",
		func(string) (*Atlas, error) { return l.Tileset, nil },
		func(string) (*ObjectClass, bool) { return bat, true },
	)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotNil(t, got)
	assert.Empty(t, dropped)
	assert.Equal(t, l.Data, got.Data)
	require.Len(t, got.Objects, 1)
	assert.Equal(t, image.Pt(5, 6), got.Objects[0].Pos)
}

func TestDecodeLevelCorruptSize(t *testing.T) {
	buf := bytes.Buffer{}
	w := binfmt.NewWriter(&buf)
	w.U32(1 << 20)
	w.U32(4)
	w.String("ts")

	_, _, err := DecodeLevel(&buf, "big",
		func(string) (*Atlas, error) { return testAtlas("ts", 1, 1, 8), nil },
		func(string) (*ObjectClass, bool) { return nil, false },
	)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLevelResizeKeepsBottomLeft(t *testing.T) {
	l := NewLevel("room", testAtlas("ts", 4, 4, 8), 2, 2)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(0, 0)))
	require.NoError(t, l.Set(image.Pt(1, 0), image.Pt(1, 0)))
	require.NoError(t, l.Set(image.Pt(0, 1), image.Pt(2, 0)))
	require.NoError(t, l.Set(image.Pt(1, 1), image.Pt(3, 0)))

	require.NoError(t, l.Resize(3, 3))
	assert.Equal(t, 3, l.Width)
	assert.Equal(t, 3, l.Height)
	assert.Equal(t, image.Pt(2, 0), l.At(image.Pt(0, 2)))
	assert.Equal(t, image.Pt(3, 0), l.At(image.Pt(1, 2)))
	assert.Equal(t, image.Pt(0, 0), l.At(image.Pt(0, 1)))
	assert.Equal(t, image.Pt(1, 0), l.At(image.Pt(1, 1)))
	assert.Equal(t, Empty, l.At(image.Pt(0, 0)))
	assert.Equal(t, Empty, l.At(image.Pt(2, 2)))

	require.NoError(t, l.Resize(1, 1))
	assert.Equal(t, []image.Point{{2, 0}}, l.Data)

	assert.Error(t, l.Resize(0, 4))
}

func TestRemoveObjectReleases(t *testing.T) {
	l, bat := levelFixture(t)
	require.Len(t, bat.Children(), 2)

	require.NoError(t, l.RemoveObject(0))
	assert.Len(t, l.Objects, 1)
	assert.Len(t, bat.Children(), 1)
	assert.Error(t, l.RemoveObject(3))

	l.Release()
	assert.Empty(t, bat.Children())
}

func TestObjectAt(t *testing.T) {
	l, _ := levelFixture(t)

	i, ok := l.ObjectAt(image.Pt(10, 10))
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = l.ObjectAt(image.Pt(-2, 55))
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = l.ObjectAt(image.Pt(100, 100))
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	l, _ := levelFixture(t)
	assert.NoError(t, l.Validate())

	l.Data[0] = image.Pt(9, 9)
	assert.ErrorIs(t, l.Validate(), ErrOutOfBounds)

	l.Data[0] = Empty
	l.Objects[0].Values = nil
	assert.Error(t, l.Validate())

	l.Tileset = nil
	assert.ErrorIs(t, l.Validate(), ErrNoAtlas)
}
