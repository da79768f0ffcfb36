package oreasset

import (
	"fmt"
	"image"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/voidshard/oreasset/binfmt"
)

// ObjectClass is a named property schema that objects are placed from.
type ObjectClass struct {
	Name string

	// Path of the .obj file, slash separated & relative to objects/
	Path string

	// Atlas the class is drawn from
	Atlas *Atlas

	Properties []Property

	// live objects of this class by handle. Not owned: objects add and remove
	// themselves.
	children map[uint64]*Object
	nextID   uint64
}

// Object is a placed instance of a class. Values line up with
// Class.Properties.
type Object struct {
	Pos    image.Point
	Class  *ObjectClass
	Values []string

	id uint64
}

// NewObjectClass returns a class with no properties stored at path (relative
// to objects/). The name is the file name minus its extension.
func NewObjectClass(classPath string, atlas *Atlas) *ObjectClass {
	return &ObjectClass{
		Name:     className(classPath),
		Path:     classPath,
		Atlas:    atlas,
		children: map[uint64]*Object{},
	}
}

func className(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// NewObject places a new object of class c at pos with default values.
func NewObject(c *ObjectClass, pos image.Point) *Object {
	values := make([]string, len(c.Properties))
	for i, p := range c.Properties {
		values[i] = p.Default
	}
	return c.adopt(pos, values)
}

// adopt registers an object holding values
func (c *ObjectClass) adopt(pos image.Point, values []string) *Object {
	if c.children == nil {
		c.children = map[uint64]*Object{}
	}
	c.nextID++
	o := &Object{Pos: pos, Class: c, Values: values, id: c.nextID}
	c.children[o.id] = o
	return o
}

// Release removes o from its class. Released objects no longer follow
// schema edits.
func (o *Object) Release() {
	if o.Class != nil {
		delete(o.Class.children, o.id)
	}
}

// Children returns the live objects of c in creation order.
func (c *ObjectClass) Children() []*Object {
	out := make([]*Object, 0, len(c.children))
	for _, o := range c.children {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// PropertyIndex returns the index of the named property or -1.
func (c *ObjectClass) PropertyIndex(name string) int {
	for i, p := range c.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// AddProperty appends p to the schema; every child gets p.Default.
func (c *ObjectClass) AddProperty(p Property) {
	c.Properties = append(c.Properties, p)
	for _, o := range c.children {
		o.Values = append(o.Values, p.Default)
	}
}

// RemoveProperty drops the i'th property from the schema & every child.
func (c *ObjectClass) RemoveProperty(i int) error {
	if i < 0 || i >= len(c.Properties) {
		return fmt.Errorf("%s: property %d out of range", c.Name, i)
	}
	c.Properties = append(c.Properties[:i], c.Properties[i+1:]...)
	for _, o := range c.children {
		if i < len(o.Values) {
			o.Values = append(o.Values[:i], o.Values[i+1:]...)
		}
	}
	return nil
}

// MoveProperty swaps the i'th property with its neighbour in direction dir
// (-1 up, 1 down), in the schema & every child.
func (c *ObjectClass) MoveProperty(i, dir int) error {
	j := i + dir
	if i < 0 || i >= len(c.Properties) || j < 0 || j >= len(c.Properties) {
		return fmt.Errorf("%s: cannot move property %d by %d", c.Name, i, dir)
	}
	c.Properties[i], c.Properties[j] = c.Properties[j], c.Properties[i]
	for _, o := range c.children {
		if i < len(o.Values) && j < len(o.Values) {
			o.Values[i], o.Values[j] = o.Values[j], o.Values[i]
		}
	}
	return nil
}

// SetPropertyType changes the type of the i'th property. A default or child
// value that can't be read as the new type is replaced: the default by the
// zero value, child values by the default.
func (c *ObjectClass) SetPropertyType(i int, t PropertyType) error {
	if i < 0 || i >= len(c.Properties) {
		return fmt.Errorf("%s: property %d out of range", c.Name, i)
	}
	if !t.Valid() {
		return fmt.Errorf("%s: invalid property type %d", c.Name, uint8(t))
	}

	p := &c.Properties[i]
	p.Type = t
	if p.Check(p.Default) != nil {
		p.Default = ""
		if t != PropString {
			p.Default = "0"
		}
	}
	for _, o := range c.children {
		if i < len(o.Values) && p.Check(o.Values[i]) != nil {
			o.Values[i] = p.Default
		}
	}
	return nil
}

// EncodeObjectClass writes the .obj record of c.
func EncodeObjectClass(w io.Writer, c *ObjectClass) error {
	atlasName := ""
	if c.Atlas != nil {
		atlasName = c.Atlas.Name
	}

	bw := binfmt.NewWriter(w)
	bw.String(atlasName)
	bw.U32(uint32(len(c.Properties)))
	if err := bw.Err(); err != nil {
		return err
	}
	for _, p := range c.Properties {
		if err := binfmt.Write(w, "%s, %s, %8i", p.Name, p.Default, uint8(p.Type)); err != nil {
			return err
		}
	}
	return nil
}

// AtlasResolver finds an atlas by name for a decoder.
type AtlasResolver func(name string) (*Atlas, error)

// DecodeObjectClass reads a .obj record for the class stored at classPath
// (relative to objects/).
func DecodeObjectClass(r io.Reader, classPath string, resolve AtlasResolver) (*ObjectClass, error) {
	br := binfmt.NewReader(r)
	atlasName := br.String()
	n := br.U32()
	if n > maxTiles {
		return nil, fmt.Errorf("%s: %d properties: %w", classPath, n, ErrCorrupt)
	}

	atlas, err := resolve(atlasName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", classPath, err)
	}

	c := NewObjectClass(classPath, atlas)
	for i := uint32(0); i < n && br.Err() == nil; i++ {
		p := Property{}
		var t uint8
		if err := binfmt.Read(br, "%s, %s, %8i", &p.Name, &p.Default, &t); err != nil && br.Err() == nil {
			return nil, err
		}
		p.Type = PropertyType(t)
		c.Properties = append(c.Properties, p)
	}
	return c, br.Err()
}
