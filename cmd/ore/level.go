package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/voidshard/oreasset"
)

type renderCmd struct {
	Level string `arg:"" help:"level name"`

	Out       string `short:"o" help:"output png. Defaults to <level>.png"`
	Scale     int    `default:"1" help:"whole number zoom"`
	Colliders bool   `help:"tint collider tiles"`
	Grid      bool   `help:"outline cells"`
}

func (c *renderCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	l, ok := p.Level(c.Level)
	if !ok {
		return fmt.Errorf("level %q: %w", c.Level, oreasset.ErrNotFound)
	}

	img, err := oreasset.Render(l, &oreasset.RenderOptions{Scale: c.Scale, Colliders: c.Colliders, Grid: c.Grid})
	if err != nil {
		return err
	}

	if c.Out == "" {
		c.Out = l.Name + oreasset.ImageExt
	}
	if err := p.Config().Codec.Save(c.Out, img); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", c.Out)
	return nil
}

type importAtlasCmd struct {
	Image string `arg:"" help:"source image (png, gif, jpeg or bmp)"`

	Name       string `short:"n" help:"atlas name. Defaults to the image file name"`
	TileWidth  int    `help:"tile width in px (defaults to tileWidth from ore.yaml)"`
	TileHeight int    `help:"tile height in px (defaults to tileHeight from ore.yaml)"`
	Gutter     int    `help:"width of grid lines between tiles to cut out"`
	Snap       bool   `help:"resize to the nearest whole tile rather than cropping partial tiles"`
	Tileset    bool   `help:"enable the tileset (patches & colliders)"`
}

func (c *importAtlasCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	cfg := p.Config()

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(c.Image), filepath.Ext(c.Image))
	}
	size := image.Pt(cfg.TileWidth, cfg.TileHeight)
	if c.TileWidth > 0 {
		size.X = c.TileWidth
	}
	if c.TileHeight > 0 {
		size.Y = c.TileHeight
	}

	a, err := oreasset.ImportAtlas(cfg.Codec, c.Image, c.Name, size, &oreasset.ImportOptions{Gutter: c.Gutter, Snap: c.Snap})
	if err != nil {
		return err
	}
	if c.Tileset {
		a.EnableTileset()
		if err := a.EnableColliders(); err != nil {
			return err
		}
	}
	if err := p.AddAtlas(a); err != nil {
		return err
	}
	if err := p.Save(); err != nil {
		return err
	}
	fmt.Printf("added atlas %s: %dx%d tiles\n", a.Name, a.Width(), a.Height())
	return nil
}

type tilesetCmd struct {
	Atlas string `arg:"" help:"atlas name"`

	Enable      bool     `help:"give the atlas a tileset"`
	Disable     bool     `help:"drop the tileset, its patches & colliders"`
	Colliders   bool     `help:"allocate the collider map"`
	NoColliders bool     `help:"drop the collider map"`
	AddPatch    []string `help:"add a patch starting at tile x:y"`
	RemovePatch []string `help:"remove the patch covering tile x:y"`
	Solid       []string `help:"flag tile x:y as a collider"`
	Clear       []string `help:"clear the collider flag of tile x:y"`
}

func (c *tilesetCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	a, ok := p.Atlas(c.Atlas)
	if !ok {
		return fmt.Errorf("atlas %q: %w", c.Atlas, oreasset.ErrNotFound)
	}

	if c.Disable {
		a.DisableTileset()
		return p.Save()
	}
	if c.Enable {
		a.EnableTileset()
	}
	if c.NoColliders {
		a.DisableColliders()
	} else if c.Colliders {
		if err := a.EnableColliders(); err != nil {
			return err
		}
	}

	apply := func(in []string, fn func(image.Point) error) error {
		for _, s := range in {
			pt, err := parsePoint(s)
			if err != nil {
				return err
			}
			if err := fn(pt); err != nil {
				return err
			}
		}
		return nil
	}

	err = apply(c.AddPatch, a.AddPatch)
	if err == nil {
		err = apply(c.RemovePatch, func(pt image.Point) error {
			if a.Tileset == nil || !a.Tileset.RemovePatch(pt) {
				return fmt.Errorf("no patch at %v", pt)
			}
			return nil
		})
	}
	if err == nil {
		err = apply(c.Solid, func(pt image.Point) error { return a.SetCollider(pt, true) })
	}
	if err == nil {
		err = apply(c.Clear, func(pt image.Point) error { return a.SetCollider(pt, false) })
	}
	if err != nil {
		return err
	}
	return p.Save()
}

type newLevelCmd struct {
	Name string `arg:"" help:"level name"`

	Tileset string `short:"t" help:"atlas to draw tiles from. Defaults to the first atlas with a tileset"`
	Width   int    `default:"16" help:"width in tiles"`
	Height  int    `default:"16" help:"height in tiles"`
}

func (c *newLevelCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	}

	var tileset *oreasset.Atlas
	if c.Tileset != "" {
		a, ok := p.Atlas(c.Tileset)
		if !ok {
			return fmt.Errorf("atlas %q: %w", c.Tileset, oreasset.ErrNotFound)
		}
		tileset = a
	} else {
		for _, a := range p.Atlases {
			if a.Tileset != nil {
				tileset = a
				break
			}
		}
	}
	if tileset == nil {
		return fmt.Errorf("no atlas with a tileset: %w", oreasset.ErrNoAtlas)
	}

	if err := p.AddLevel(oreasset.NewLevel(c.Name, tileset, c.Width, c.Height)); err != nil {
		return err
	}
	return p.Save()
}

type resizeLevelCmd struct {
	Name   string `arg:"" help:"level name"`
	Width  int    `arg:"" help:"new width in tiles"`
	Height int    `arg:"" help:"new height in tiles"`
}

func (c *resizeLevelCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	l, ok := p.Level(c.Name)
	if !ok {
		return fmt.Errorf("level %q: %w", c.Name, oreasset.ErrNotFound)
	}
	if err := l.Resize(c.Width, c.Height); err != nil {
		return err
	}
	return p.Save()
}

type removeLevelCmd struct {
	Name string `arg:"" help:"level name"`
}

func (c *removeLevelCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	if err := p.RemoveLevel(c.Name); err != nil {
		return err
	}
	return p.Save()
}

// parsePoint reads "x:y", list flags already split on commas
func parsePoint(s string) (image.Point, error) {
	pt := image.Point{}
	_, err := fmt.Sscanf(s, "%d:%d", &pt.X, &pt.Y)
	if err != nil {
		return pt, fmt.Errorf("expected x:y got %q", s)
	}
	return pt, nil
}

type placeCmd struct {
	Level string `arg:"" help:"level name"`
	Class string `arg:"" help:"object class name"`
	X     int    `arg:"" help:"x in pixels"`
	Y     int    `arg:"" help:"y in pixels"`

	Set    map[string]string `short:"s" help:"set property values name=value"`
	Remove bool              `help:"remove the object at x,y instead"`
}

func (c *placeCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	l, ok := p.Level(c.Level)
	if !ok {
		return fmt.Errorf("level %q: %w", c.Level, oreasset.ErrNotFound)
	}

	if c.Remove {
		i, ok := l.ObjectAt(image.Pt(c.X, c.Y))
		if !ok {
			return fmt.Errorf("no object at %d,%d in %s", c.X, c.Y, l.Name)
		}
		if err := l.RemoveObject(i); err != nil {
			return err
		}
		return p.Save()
	}

	oc, ok := p.Class(c.Class)
	if !ok {
		return fmt.Errorf("class %q: %w", c.Class, oreasset.ErrNotFound)
	}
	o := l.AddObject(oc, image.Pt(c.X, c.Y))
	for name, value := range c.Set {
		if err := o.SetByName(name, value); err != nil {
			return err
		}
	}
	return p.Save()
}
