package oreasset

import (
	"image"
	"image/color"
	"io"
	"log/slog"
)

// quietConfig is a default config rooted at root that logs nowhere
func quietConfig(root string) *Config {
	cfg := DefaultConfig()
	cfg.Root = root
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

// solidImage returns a w x h image filled with c
func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// testAtlas returns an opaque white atlas of w x h tiles of size x size px
func testAtlas(name string, w, h, size int) *Atlas {
	return NewAtlas(name, image.Pt(size, size), solidImage(w*size, h*size, color.White))
}
