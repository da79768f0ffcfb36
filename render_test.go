package oreasset

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stripeAtlas is 8x1 tiles of 4px whose red channel is 8x the pixel column
func stripeAtlas() *Atlas {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 8), A: 255})
		}
	}
	return NewAtlas("stripes", image.Pt(4, 4), img)
}

func redAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).R
}

func TestRenderPlainTiles(t *testing.T) {
	a := stripeAtlas()
	l := NewLevel("plain", a, 2, 1)
	require.NoError(t, l.Set(image.Pt(1, 0), image.Pt(3, 0)))

	img, err := Render(l, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	// tile 3 starts at atlas column 12
	assert.Equal(t, uint8(12*8), redAt(img, 4, 0))
	assert.Equal(t, uint8(15*8), redAt(img, 7, 3))

	// empty cell left clear
	_, _, _, alpha := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), alpha)
}

func TestRenderPatchQuadrants(t *testing.T) {
	a := stripeAtlas()
	a.EnableTileset()
	require.NoError(t, a.AddPatch(image.Pt(0, 0)))
	l := NewLevel("patch", a, 1, 1)
	require.NoError(t, l.Set(image.Pt(0, 0), image.Pt(0, 0)))

	img, err := Render(l, nil)
	require.NoError(t, err)

	// a lone patch tile draws corners (column 1, atlas x 4..7)
	assert.Equal(t, uint8(4*8), redAt(img, 0, 0))
	assert.Equal(t, uint8(6*8), redAt(img, 2, 0))
	assert.Equal(t, uint8(5*8), redAt(img, 1, 3))
}

func TestRenderScale(t *testing.T) {
	a := stripeAtlas()
	l := NewLevel("big", a, 2, 2)
	bat := NewObjectClass("bat.obj", a)
	l.AddObject(bat, image.Pt(1, 1))

	img, err := Render(l, &RenderOptions{Scale: 3, Grid: true, Colliders: true})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 24, 24), img.Bounds())
}

func TestRenderNoTileset(t *testing.T) {
	_, err := Render(&Level{Name: "bare"}, nil)
	assert.ErrorIs(t, err, ErrNoAtlas)
}
