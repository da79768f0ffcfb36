package oreasset

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ConfigFile is looked for in the project root by LoadConfig.
const ConfigFile = "ore.yaml"

// Config includes settings for a Project
type Config struct {
	// project directory holding atlases/, objects/ and levels/
	Root string `yaml:"root"`

	// in pixels, used when importing a new atlas
	TileWidth  int `yaml:"tileWidth"`
	TileHeight int `yaml:"tileHeight"`

	// names of the C arrays export renders
	AtlasArray string `yaml:"atlasArray"`
	LevelArray string `yaml:"levelArray"`

	// refuse to load levels / classes that reference a missing atlas or class
	// rather than falling back to the first one
	StrictRefs bool `yaml:"strictRefs"`

	Codec  ImageCodec   `yaml:"-"`
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a project config with default settings.
func DefaultConfig() *Config {
	return &Config{
		TileWidth:  16,
		TileHeight: 16,
		AtlasArray: "textures",
		LevelArray: "levels",
		Codec:      PNGCodec{},
		Logger:     slog.Default(),
	}
}

// LoadConfig returns the default config for the project at root, overlaid
// with <root>/ore.yaml if that file exists.
func LoadConfig(root string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = root
	if err := cfg.expand(); err != nil {
		return nil, err
	}

	data, err := ioutil.ReadFile(filepath.Join(cfg.Root, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", ConfigFile, err)
	}
	if cfg.Root == "" {
		cfg.Root = root
	}
	return cfg, cfg.expand()
}

// WriteFile writes the yaml settings of cfg to path.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

// expand resolves a leading ~ in Root and fills in anything left unset.
func (c *Config) expand() error {
	root, err := homedir.Expand(c.Root)
	if err != nil {
		return fmt.Errorf("config: expand root %q: %w", c.Root, err)
	}
	c.Root = root

	def := DefaultConfig()
	if c.TileWidth < 1 {
		c.TileWidth = def.TileWidth
	}
	if c.TileHeight < 1 {
		c.TileHeight = def.TileHeight
	}
	if c.AtlasArray == "" {
		c.AtlasArray = def.AtlasArray
	}
	if c.LevelArray == "" {
		c.LevelArray = def.LevelArray
	}
	if c.Codec == nil {
		c.Codec = def.Codec
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return nil
}
