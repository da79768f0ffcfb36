package main

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/voidshard/oreasset"
)

type canvasCmd struct {
	Set   canvasSetCmd   `cmd:"" help:"set (or clear) one canvas cell"`
	Paint canvasPaintCmd `cmd:"" help:"copy a level onto the canvas"`
	Crop  canvasCropCmd  `cmd:"" help:"cut a rectangle of the canvas out into a new level"`
}

type canvasSetCmd struct {
	Input string `arg:"" help:"canvas database file, created if missing"`
	X     int    `arg:"" help:"cell x"`
	Y     int    `arg:"" help:"cell y"`
	Tile  string `arg:"" help:"atlas tile x:y, or 'empty' to clear the cell"`
}

func (c *canvasSetCmd) Run(g *Globals) error {
	tile := oreasset.Empty
	if c.Tile != "empty" {
		pt, err := parsePoint(c.Tile)
		if err != nil {
			return err
		}
		tile = pt
	}

	cv, err := oreasset.OpenCanvas(c.Input)
	if err != nil {
		return err
	}
	defer cv.Close()
	return cv.Set(c.X, c.Y, tile)
}

type canvasPaintCmd struct {
	Input string `arg:"" help:"canvas database file, created if missing"`
	Level string `arg:"" help:"level to copy"`
	X     int    `arg:"" help:"cell x of the level's top left corner"`
	Y     int    `arg:"" help:"cell y of the level's top left corner"`

	Force bool `help:"paint over cells that are already set"`
}

func (c *canvasPaintCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	l, ok := p.Level(c.Level)
	if !ok {
		return fmt.Errorf("level %q: %w", c.Level, oreasset.ErrNotFound)
	}

	cv, err := oreasset.OpenCanvas(c.Input)
	if err != nil {
		return err
	}
	defer cv.Close()

	if !c.Force {
		fits, err := cv.Fits(c.X, c.Y, l.Width, l.Height)
		if err != nil {
			return err
		}
		if !fits {
			return fmt.Errorf("cells under %s at %d,%d are already set (use --force)", l.Name, c.X, c.Y)
		}
	}
	return cv.Paint(c.X, c.Y, l)
}

type canvasCropCmd struct {
	Input string `arg:"" help:"canvas database file"`
	Name  string `arg:"" help:"name of the new level"`

	Tileset string `short:"t" help:"atlas the canvas tiles come from (required)"`

	// defaults to everything set on the canvas
	X0 int `help:"x of the top left cell"`
	Y0 int `help:"y of the top left cell"`
	X1 int `help:"x of the bottom right cell, exclusive"`
	Y1 int `help:"y of the bottom right cell, exclusive"`
}

func (c *canvasCropCmd) Run(g *Globals) error {
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("canvas not found: %w", err)
	}

	p, err := g.open()
	if err != nil {
		return err
	}
	tileset, ok := p.Atlas(c.Tileset)
	if !ok {
		return fmt.Errorf("atlas %q: %w", c.Tileset, oreasset.ErrNotFound)
	}

	cv, err := oreasset.OpenCanvas(c.Input)
	if err != nil {
		return err
	}
	defer cv.Close()

	rect := image.Rect(c.X0, c.Y0, c.X1, c.Y1)
	if rect.Empty() {
		rect, err = cv.Bounds()
		if err != nil {
			return err
		}
	}

	l, dropped, err := cv.Level(c.Name, tileset, p.Class, rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y)
	if err != nil {
		return err
	}
	for _, class := range dropped {
		p.Logger().Warn("dropped object of unknown class", slog.String("class", class))
	}

	if err := p.AddLevel(l); err != nil {
		return err
	}
	if err := p.Save(); err != nil {
		return err
	}
	fmt.Printf("added level %s: %dx%d, %d objects\n", l.Name, l.Width, l.Height, len(l.Objects))
	return nil
}
