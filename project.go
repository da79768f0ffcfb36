package oreasset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"io/ioutil"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	cp "github.com/otiai10/copy"
)

// Sub directories of a project root, and the file extensions within.
const (
	AtlasDir  = "atlases"
	ObjectDir = "objects"
	LevelDir  = "levels"

	ImageExt = ".png"
	AtlasExt = ".atl"
	ClassExt = ".obj"
	LevelExt = ".lvl"
)

var (
	// ErrNotFound is returned when a named atlas, class or level is missing
	ErrNotFound = errors.New("not found")

	// ErrNoAtlas is returned when an atlas is needed but none are loaded
	ErrNoAtlas = errors.New("no atlas loaded")

	// ErrExists is returned when adding something under a name in use
	ErrExists = errors.New("already exists")
)

// Project is everything loaded from one project directory.
//
// Load builds a whole new Project; anything holding pointers into a previous
// one (a selected atlas, level ..) must look them up again afterwards.
type Project struct {
	Root string

	Atlases []*Atlas
	Classes []*ObjectClass
	Levels  []*Level

	cfg *Config
	log *slog.Logger

	atlasByName map[string]*Atlas
	classByName map[string]*ObjectClass
	levelByName map[string]*Level

	// files of renamed / removed entities, deleted on the next Save
	stale []string
}

// New returns an empty project rooted at cfg.Root.
func New(cfg *Config) *Project {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.expand()
	p := &Project{Root: cfg.Root, cfg: cfg, log: cfg.Logger}
	p.reindex()
	return p
}

// Open loads the project at root, reading ore.yaml if present.
func Open(root string) (*Project, error) {
	cfg, err := LoadConfig(root)
	if err != nil {
		return nil, err
	}
	return Load(cfg)
}

// Config returns the settings the project was made with.
func (p *Project) Config() *Config {
	return p.cfg
}

// Logger returns the project logger.
func (p *Project) Logger() *slog.Logger {
	return p.log
}

// reindex rebuilds the name lookups
func (p *Project) reindex() {
	p.atlasByName = make(map[string]*Atlas, len(p.Atlases))
	for _, a := range p.Atlases {
		if _, ok := p.atlasByName[a.Name]; !ok {
			p.atlasByName[a.Name] = a
		}
	}
	p.classByName = make(map[string]*ObjectClass, len(p.Classes))
	for _, c := range p.Classes {
		if _, ok := p.classByName[c.Name]; !ok {
			p.classByName[c.Name] = c
		}
	}
	p.levelByName = make(map[string]*Level, len(p.Levels))
	for _, l := range p.Levels {
		if _, ok := p.levelByName[l.Name]; !ok {
			p.levelByName[l.Name] = l
		}
	}
}

// Atlas returns the atlas called name.
func (p *Project) Atlas(name string) (*Atlas, bool) {
	a, ok := p.atlasByName[name]
	if ok && a.Name == name {
		return a, true
	}
	// renamed behind our back, rebuild & try again
	p.reindex()
	a, ok = p.atlasByName[name]
	return a, ok
}

// Class returns the first object class called name.
func (p *Project) Class(name string) (*ObjectClass, bool) {
	c, ok := p.classByName[name]
	if ok && c.Name == name {
		return c, true
	}
	p.reindex()
	c, ok = p.classByName[name]
	return c, ok
}

// Level returns the level called name.
func (p *Project) Level(name string) (*Level, bool) {
	l, ok := p.levelByName[name]
	if ok && l.Name == name {
		return l, true
	}
	p.reindex()
	l, ok = p.levelByName[name]
	return l, ok
}

// ResolveAtlas returns the atlas called name. If there is none the first
// atlas stands in for it, unless the project is set to StrictRefs.
func (p *Project) ResolveAtlas(name string) (*Atlas, error) {
	if a, ok := p.Atlas(name); ok {
		return a, nil
	}
	if p.cfg.StrictRefs {
		return nil, fmt.Errorf("atlas %q: %w", name, ErrNotFound)
	}
	if len(p.Atlases) == 0 {
		return nil, fmt.Errorf("atlas %q: %w", name, ErrNoAtlas)
	}
	p.log.Warn("missing atlas, using first atlas instead",
		slog.String("atlas", name),
		slog.String("using", p.Atlases[0].Name),
	)
	return p.Atlases[0], nil
}

// ClassIndex returns the position of c in Classes or -1.
func (p *Project) ClassIndex(c *ObjectClass) int {
	for i, o := range p.Classes {
		if o == c {
			return i
		}
	}
	return -1
}

// AtlasIndex returns the position of a in Atlases or -1.
func (p *Project) AtlasIndex(a *Atlas) int {
	for i, o := range p.Atlases {
		if o == a {
			return i
		}
	}
	return -1
}

// AddAtlas adds a, keeping atlases in name order.
func (p *Project) AddAtlas(a *Atlas) error {
	if _, ok := p.Atlas(a.Name); ok {
		return fmt.Errorf("atlas %q: %w", a.Name, ErrExists)
	}
	p.Atlases = append(p.Atlases, a)
	sortAtlases(p.Atlases)
	p.reindex()
	return nil
}

// RenameAtlas renames an atlas; its old files go on the next Save.
func (p *Project) RenameAtlas(from, to string) error {
	a, ok := p.Atlas(from)
	if !ok {
		return fmt.Errorf("atlas %q: %w", from, ErrNotFound)
	}
	if _, ok := p.Atlas(to); ok {
		return fmt.Errorf("atlas %q: %w", to, ErrExists)
	}
	p.stale = append(p.stale,
		filepath.Join(AtlasDir, from+ImageExt),
		filepath.Join(AtlasDir, from+AtlasExt),
	)
	a.Name = to
	sortAtlases(p.Atlases)
	p.reindex()
	return nil
}

// AddClass adds c, keeping classes in name order. Two classes may share a
// name in different folders, but not a path. A class without an atlas gets
// the first one.
func (p *Project) AddClass(c *ObjectClass) error {
	for _, o := range p.Classes {
		if o.Path == c.Path {
			return fmt.Errorf("class %q: %w", c.Path, ErrExists)
		}
	}
	if c.Atlas == nil {
		if len(p.Atlases) == 0 {
			return fmt.Errorf("class %q: %w", c.Name, ErrNoAtlas)
		}
		c.Atlas = p.Atlases[0]
	}
	p.Classes = append(p.Classes, c)
	sortClasses(p.Classes)
	p.reindex()
	return nil
}

// AddLevel adds l after the existing levels. Levels holding tiles outside
// their tileset are refused.
func (p *Project) AddLevel(l *Level) error {
	if _, ok := p.Level(l.Name); ok {
		return fmt.Errorf("level %q: %w", l.Name, ErrExists)
	}
	if l.Tileset == nil || l.Tileset.Tileset == nil {
		return fmt.Errorf("level %q: tileset must be an atlas with a tileset", l.Name)
	}
	if err := l.Validate(); err != nil {
		return err
	}
	p.Levels = append(p.Levels, l)
	p.reindex()
	return nil
}

// RemoveLevel drops a level & releases its objects; its file goes on the
// next Save.
func (p *Project) RemoveLevel(name string) error {
	for i, l := range p.Levels {
		if l.Name != name {
			continue
		}
		l.Release()
		p.Levels = append(p.Levels[:i], p.Levels[i+1:]...)
		p.stale = append(p.stale, filepath.Join(LevelDir, name+LevelExt))
		p.reindex()
		return nil
	}
	return fmt.Errorf("level %q: %w", name, ErrNotFound)
}

// Release deregisters every level object from its class.
func (p *Project) Release() {
	for _, l := range p.Levels {
		l.Release()
	}
}

// Load reads every atlas, object class & level under cfg.Root into a new
// project.
//
// Load does not stop for a single bad file: missing references fall back
// (see ResolveAtlas), objects of unknown classes are dropped & files that
// can't be read are skipped. All of these are logged.
func Load(cfg *Config) (*Project, error) {
	p := New(cfg)

	info, err := os.Stat(p.Root)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", p.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project %s: not a directory", p.Root)
	}

	if err := p.loadAtlases(); err != nil {
		return nil, err
	}
	p.reindex()
	if err := p.loadClasses(); err != nil {
		return nil, err
	}
	p.reindex()
	if err := p.loadLevels(); err != nil {
		return nil, err
	}
	p.reindex()

	p.log.Debug("project loaded",
		slog.String("root", p.Root),
		slog.Int("atlases", len(p.Atlases)),
		slog.Int("classes", len(p.Classes)),
		slog.Int("levels", len(p.Levels)),
	)
	return p, nil
}

// readDir lists a project sub directory; a missing one is empty
func (p *Project) readDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(filepath.Join(p.Root, dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

func (p *Project) loadAtlases() error {
	entries, err := p.readDir(AtlasDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ImageExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ImageExt)
		a, err := p.loadAtlas(name)
		if err != nil {
			p.log.Warn("skipping atlas", slog.String("atlas", name), slog.String("err", err.Error()))
			continue
		}
		p.Atlases = append(p.Atlases, a)
	}
	sortAtlases(p.Atlases)
	return nil
}

func (p *Project) loadAtlas(name string) (*Atlas, error) {
	img, err := p.cfg.Codec.Load(filepath.Join(p.Root, AtlasDir, name+ImageExt))
	if err != nil {
		return nil, err
	}
	a := NewAtlas(name, image.Pt(p.cfg.TileWidth, p.cfg.TileHeight), img)

	f, err := os.Open(filepath.Join(p.Root, AtlasDir, name+AtlasExt))
	if errors.Is(err, fs.ErrNotExist) {
		p.log.Warn("atlas has no .atl file, using default tile size", slog.String("atlas", name))
		return a, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	err = DecodeAtlas(f, a)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		p.log.Warn("truncated atlas file", slog.String("atlas", name))
	} else if err != nil {
		return nil, err
	}
	if a.TileSize.X < 1 || a.TileSize.Y < 1 {
		return nil, fmt.Errorf("%w: tile size %v", ErrCorrupt, a.TileSize)
	}
	return a, nil
}

func (p *Project) loadClasses() error {
	root := filepath.Join(p.Root, ObjectDir)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		c, err := p.loadClass(path, rel)
		if err != nil {
			p.log.Warn("skipping object class", slog.String("class", rel), slog.String("err", err.Error()))
			return nil
		}
		p.Classes = append(p.Classes, c)
		return nil
	})
	sortClasses(p.Classes)
	return err
}

func (p *Project) loadClass(path, rel string) (*ObjectClass, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := DecodeObjectClass(f, rel, p.ResolveAtlas)
	if errors.Is(err, io.ErrUnexpectedEOF) && c != nil {
		p.log.Warn("truncated object class file", slog.String("class", rel))
		return c, nil
	}
	return c, err
}

func (p *Project) loadLevels() error {
	entries, err := p.readDir(LevelDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != LevelExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), LevelExt)
		l, err := p.loadLevel(name)
		if err != nil {
			p.log.Warn("skipping level", slog.String("level", name), slog.String("err", err.Error()))
			continue
		}
		p.Levels = append(p.Levels, l)
	}
	return nil
}

func (p *Project) loadLevel(name string) (*Level, error) {
	f, err := os.Open(filepath.Join(p.Root, LevelDir, name+LevelExt))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, dropped, err := DecodeLevel(f, name, p.ResolveAtlas, p.Class)
	if errors.Is(err, io.ErrUnexpectedEOF) && l != nil {
		p.log.Warn("truncated level file", slog.String("level", name))
	} else if err != nil {
		return nil, err
	}
	for _, class := range dropped {
		p.log.Warn("dropped object of unknown class",
			slog.String("level", name),
			slog.String("class", class),
		)
	}
	return l, nil
}

// Save writes every atlas, object class & level under Root.
func (p *Project) Save() error {
	for _, dir := range []string{AtlasDir, ObjectDir, LevelDir} {
		if err := os.MkdirAll(filepath.Join(p.Root, dir), 0755); err != nil {
			return err
		}
	}

	for _, a := range p.Atlases {
		if err := p.saveAtlas(a); err != nil {
			return fmt.Errorf("atlas %q: %w", a.Name, err)
		}
	}
	for _, c := range p.Classes {
		path := filepath.Join(p.Root, ObjectDir, filepath.FromSlash(c.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := writeFile(path, func(w io.Writer) error { return EncodeObjectClass(w, c) }); err != nil {
			return fmt.Errorf("class %q: %w", c.Path, err)
		}
	}
	for _, l := range p.Levels {
		path := filepath.Join(p.Root, LevelDir, l.Name+LevelExt)
		if err := writeFile(path, func(w io.Writer) error { return EncodeLevel(w, l) }); err != nil {
			return fmt.Errorf("level %q: %w", l.Name, err)
		}
	}

	owned := p.files()
	for _, rel := range p.stale {
		if owned[rel] {
			continue
		}
		err := os.Remove(filepath.Join(p.Root, rel))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	p.stale = nil
	return nil
}

// files is every path, relative to Root, that Save writes
func (p *Project) files() map[string]bool {
	owned := map[string]bool{}
	for _, a := range p.Atlases {
		owned[filepath.Join(AtlasDir, a.Name+ImageExt)] = true
		owned[filepath.Join(AtlasDir, a.Name+AtlasExt)] = true
	}
	for _, c := range p.Classes {
		owned[filepath.Join(ObjectDir, filepath.FromSlash(c.Path))] = true
	}
	for _, l := range p.Levels {
		owned[filepath.Join(LevelDir, l.Name+LevelExt)] = true
	}
	return owned
}

func (p *Project) saveAtlas(a *Atlas) error {
	if err := p.cfg.Codec.Save(filepath.Join(p.Root, AtlasDir, a.Name+ImageExt), a.Image); err != nil {
		return err
	}
	return writeFile(filepath.Join(p.Root, AtlasDir, a.Name+AtlasExt), func(w io.Writer) error {
		return EncodeAtlas(w, a)
	})
}

// SaveAs copies the current project directory to root (so folders & files we
// don't manage come along), then saves into it. Root is updated.
func (p *Project) SaveAs(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	from, _ := filepath.Abs(p.Root)

	if _, err := os.Stat(from); err == nil && from != abs {
		if err := cp.Copy(from, abs); err != nil {
			return fmt.Errorf("copy %s to %s: %w", from, abs, err)
		}
	}

	p.Root = abs
	p.cfg.Root = abs
	return p.Save()
}

// writeFile encodes into memory & writes path in one go.
func writeFile(path string, encode func(w io.Writer) error) error {
	buff := bytes.Buffer{}
	if err := encode(&buff); err != nil {
		return err
	}
	return ioutil.WriteFile(path, buff.Bytes(), 0644)
}

func sortAtlases(in []*Atlas) {
	sort.SliceStable(in, func(i, j int) bool { return naturalLess(in[i].Name, in[j].Name) })
}

func sortClasses(in []*ObjectClass) {
	sort.SliceStable(in, func(i, j int) bool { return naturalLess(in[i].Name, in[j].Name) })
}

// naturalLess orders names that start with a number numerically & before
// anything else; other names compare as plain strings.
func naturalLess(a, b string) bool {
	na, aok := leadingInt(a)
	nb, bok := leadingInt(b)
	switch {
	case aok && bok:
		if na != nb {
			return na < nb
		}
		return a < b
	case aok:
		return true
	case bok:
		return false
	}
	return a < b
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
