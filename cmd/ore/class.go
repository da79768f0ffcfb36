package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/voidshard/oreasset"
)

type classCmd struct {
	Path string `arg:"" help:"class file relative to objects/, eg. enemies/bat.obj. Created if missing"`

	Atlas  string   `short:"a" help:"atlas the class is drawn from"`
	Add    []string `help:"add a property name:type[:default], type is int, float or String"`
	Remove []string `help:"remove a property by name"`
	Type   []string `help:"change a property type name:type"`
	Up     []string `help:"move a property up one place"`
	Down   []string `help:"move a property down one place"`
}

func (c *classCmd) Run(g *Globals) error {
	p, err := g.open()
	if err != nil {
		return err
	}

	classPath := path.Clean(strings.ReplaceAll(c.Path, "\\", "/"))
	var atlas *oreasset.Atlas
	if c.Atlas != "" {
		a, ok := p.Atlas(c.Atlas)
		if !ok {
			return fmt.Errorf("atlas %q: %w", c.Atlas, oreasset.ErrNotFound)
		}
		atlas = a
	}

	var oc *oreasset.ObjectClass
	for _, o := range p.Classes {
		if o.Path == classPath {
			oc = o
			break
		}
	}
	if oc == nil {
		oc = oreasset.NewObjectClass(classPath, atlas)
		if err := p.AddClass(oc); err != nil {
			return err
		}
	} else if atlas != nil {
		oc.Atlas = atlas
	}

	for _, s := range c.Add {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("expected name:type[:default] got %q", s)
		}
		t, err := oreasset.ParsePropertyType(parts[1])
		if err != nil {
			return err
		}
		prop := oreasset.Property{Name: parts[0], Type: t}
		if len(parts) == 3 {
			prop.Default = parts[2]
		} else if t != oreasset.PropString {
			prop.Default = "0"
		}
		if err := prop.Check(prop.Default); err != nil {
			return fmt.Errorf("property %q default: %w", prop.Name, err)
		}
		oc.AddProperty(prop)
	}

	index := func(name string) (int, error) {
		i := oc.PropertyIndex(name)
		if i < 0 {
			return i, fmt.Errorf("%w: property %q on %s", oreasset.ErrNotFound, name, oc.Name)
		}
		return i, nil
	}

	for _, name := range c.Remove {
		i, err := index(name)
		if err != nil {
			return err
		}
		if err := oc.RemoveProperty(i); err != nil {
			return err
		}
	}
	for _, s := range c.Type {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("expected name:type got %q", s)
		}
		i, err := index(parts[0])
		if err != nil {
			return err
		}
		t, err := oreasset.ParsePropertyType(parts[1])
		if err != nil {
			return err
		}
		if err := oc.SetPropertyType(i, t); err != nil {
			return err
		}
	}
	for _, move := range []struct {
		names []string
		dir   int
	}{{c.Up, -1}, {c.Down, 1}} {
		for _, name := range move.names {
			i, err := index(name)
			if err != nil {
				return err
			}
			if err := oc.MoveProperty(i, move.dir); err != nil {
				return err
			}
		}
	}

	return p.Save()
}
