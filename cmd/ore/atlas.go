package main

import (
	"fmt"

	"github.com/voidshard/oreasset"
)

type renameAtlasCmd struct {
	From string `arg:"" help:"current atlas name"`
	To   string `arg:"" help:"new atlas name"`
}

func (c *renameAtlasCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	if err := p.RenameAtlas(c.From, c.To); err != nil {
		return err
	}
	return p.Save()
}

// atlasImageCmd redraws an atlas from a new image, keeping its tileset.
type atlasImageCmd struct {
	Atlas string `arg:"" help:"atlas name"`
	Image string `arg:"" help:"replacement image (png, gif, jpeg or bmp)"`

	Gutter int  `help:"width of grid lines between tiles to cut out"`
	Snap   bool `help:"resize to the nearest whole tile rather than cropping partial tiles"`
}

func (c *atlasImageCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	a, ok := p.Atlas(c.Atlas)
	if !ok {
		return fmt.Errorf("atlas %q: %w", c.Atlas, oreasset.ErrNotFound)
	}

	in, err := oreasset.ImportAtlas(p.Config().Codec, c.Image, a.Name, a.TileSize, &oreasset.ImportOptions{Gutter: c.Gutter, Snap: c.Snap})
	if err != nil {
		return err
	}
	before := a.Size()
	a.SetImage(in.Image)
	if err := p.Save(); err != nil {
		return err
	}
	fmt.Printf("atlas %s: %dx%d tiles, was %dx%d\n", a.Name, a.Width(), a.Height(), before.X, before.Y)
	return nil
}
