package main

import (
	"fmt"
	"io/ioutil"

	"golang.design/x/clipboard"

	"github.com/voidshard/oreasset"
)

type exportCmd struct {
	Atlases exportAtlasesCmd `cmd:"" help:"pack atlases & object classes"`
	Levels  exportLevelsCmd  `cmd:"" help:"pack levels"`
}

// ExportOpts says where packed data goes. Without --out or --clipboard the
// literal is printed.
type ExportOpts struct {
	Out       string `short:"o" help:"write to this file"`
	Clipboard bool   `short:"c" help:"copy to the clipboard"`
	Raw       bool   `help:"write the packed bytes rather than a C array literal (needs --out)"`
	Name      string `short:"n" help:"C array name (defaults to atlasArray / levelArray from ore.yaml)"`
}

type exportAtlasesCmd struct {
	ExportOpts
}

func (c *exportAtlasesCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	data, err := oreasset.ExportAtlases(p)
	if err != nil {
		return err
	}
	return c.deliver(data, p.Config().AtlasArray)
}

type exportLevelsCmd struct {
	ExportOpts
}

func (c *exportLevelsCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}
	data, err := oreasset.ExportLevels(p)
	if err != nil {
		return err
	}
	return c.deliver(data, p.Config().LevelArray)
}

func (o *ExportOpts) deliver(data []byte, array string) error {
	if o.Name != "" {
		array = o.Name
	}
	literal := oreasset.Literal(array, data)

	if o.Raw && o.Out == "" {
		return fmt.Errorf("--raw needs --out")
	}

	if o.Out != "" {
		out := []byte(literal)
		if o.Raw {
			out = data
		}
		if err := ioutil.WriteFile(o.Out, out, 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes of %s to %s\n", len(data), array, o.Out)
	}

	if o.Clipboard {
		if err := clipboard.Init(); err != nil {
			return fmt.Errorf("clipboard unavailable: %w", err)
		}
		clipboard.Write(clipboard.FmtText, []byte(literal))
		fmt.Printf("copied %d bytes of %s to the clipboard\n", len(data), array)
	}

	if o.Out == "" && !o.Clipboard {
		fmt.Println(literal)
	}
	return nil
}
