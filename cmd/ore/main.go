package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/voidshard/oreasset"
)

const desc = `Inspects, edits & exports an ore asset project: texture atlases (with auto-tile
patches & collision flags), object classes and tile levels.

A project is a directory holding atlases/ (.png + .atl), objects/ (.obj files in any
folder layout) and levels/ (.lvl). Settings are read from ore.yaml in the project root
if present; flags override them.`

// Globals are flags shared by every command.
type Globals struct {
	Root   string `short:"r" default:"." help:"project directory"`
	Strict bool   `help:"fail on references to missing atlases instead of falling back to the first atlas"`
	Debug  bool   `help:"debug logging"`
}

var cli struct {
	Globals

	Info        infoCmd        `cmd:"" help:"list atlases, object classes & levels"`
	Export      exportCmd      `cmd:"" help:"pack the project for the target"`
	Render      renderCmd      `cmd:"" help:"draw a level preview to a png"`
	ImportAtlas importAtlasCmd `cmd:"" name:"import-atlas" help:"add an image as a new atlas"`
	RenameAtlas renameAtlasCmd `cmd:"" name:"rename-atlas" help:"rename an atlas, updating what refers to it"`
	AtlasImage  atlasImageCmd  `cmd:"" name:"atlas-image" help:"replace the image of an atlas, keeping its tileset"`
	Tileset     tilesetCmd     `cmd:"" help:"edit the tileset of an atlas"`
	NewLevel    newLevelCmd    `cmd:"" name:"new-level" help:"add an empty level"`
	ResizeLevel resizeLevelCmd `cmd:"" name:"resize-level" help:"resize a level keeping the bottom left corner"`
	RemoveLevel removeLevelCmd `cmd:"" name:"remove-level" help:"delete a level"`
	SaveAs      saveAsCmd      `cmd:"" name:"save-as" help:"copy the project to a new directory"`
	Watch       watchCmd       `cmd:"" help:"re-export whenever project files change"`
	Class       classCmd       `cmd:"" help:"create or edit an object class"`
	Place       placeCmd       `cmd:"" help:"place (or remove) an object in a level"`
	Canvas      canvasCmd      `cmd:"" help:"lay out tiles on an unbounded canvas & crop levels from it"`
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("ore"),
		kong.Description(desc),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// logger writes text logs to stderr
func (g *Globals) logger() *slog.Logger {
	level := slog.LevelInfo
	if g.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// config reads ore.yaml (if any) & applies flags on top.
func (g *Globals) config() (*oreasset.Config, error) {
	cfg, err := oreasset.LoadConfig(g.Root)
	if err != nil {
		return nil, err
	}
	if g.Strict {
		cfg.StrictRefs = true
	}
	cfg.Logger = g.logger()
	return cfg, nil
}

// open loads the project.
func (g *Globals) open() (*oreasset.Project, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	return oreasset.Load(cfg)
}

type infoCmd struct{}

func (c *infoCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}

	fmt.Printf("project %s\n", p.Root)

	fmt.Printf("\natlases (%d)\n", len(p.Atlases))
	for i, a := range p.Atlases {
		fmt.Printf("  %d %s: %dx%d tiles of %dx%d", i, a.Name, a.Width(), a.Height(), a.TileSize.X, a.TileSize.Y)
		if a.Tileset != nil {
			fmt.Printf(", %d patches", len(a.Tileset.Patches))
			if a.HasColliders() {
				n := 0
				for _, on := range a.Tileset.Colliders {
					if on {
						n++
					}
				}
				fmt.Printf(", %d colliders", n)
			}
		}
		fmt.Println()
	}

	fmt.Printf("\nobject classes (%d)\n", len(p.Classes))
	for i, oc := range p.Classes {
		atlas := ""
		if oc.Atlas != nil {
			atlas = oc.Atlas.Name
		}
		fmt.Printf("  %d %s (%s) atlas %s\n", i, oc.Name, oc.Path, atlas)
		for _, prop := range oc.Properties {
			fmt.Printf("      %s %s = %q\n", prop.Type, prop.Name, prop.Default)
		}
	}

	fmt.Printf("\nlevels (%d)\n", len(p.Levels))
	for i, l := range p.Levels {
		fmt.Printf("  %d %s: %dx%d on %s, %d objects\n", i, l.Name, l.Width, l.Height, l.Tileset.Name, len(l.Objects))
	}
	return nil
}

type saveAsCmd struct {
	Dir string `arg:"" help:"new project directory"`
}

func (c *saveAsCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	if err := p.SaveAs(c.Dir); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", p.Root)
	return nil
}
