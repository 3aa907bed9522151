// Package config handles igi.toml workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the workspace configuration file looked up by FindAndLoad.
const FileName = "igi.toml"

// Config represents an igi.toml workspace configuration.
type Config struct {
	Game Game `toml:"game"`

	// Dir is the directory containing the igi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Game configures where the game files live and where converted output
// goes.
type Game struct {
	GameDir string `toml:"game-dir"`
	WorkDir string `toml:"work-dir"`
}

// Load parses an igi.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.Game.GameDir == "" {
		c.Game.GameDir = "C:/Games/ProjectIGI"
	}
	if c.Game.WorkDir == "" {
		c.Game.WorkDir = "work"
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find an igi.toml file, then loads
// and returns the configuration. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Init writes a default igi.toml to dir unless one already exists.
func Init(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", path)
	}

	content := "[game]\ngame-dir = \"C:/Games/ProjectIGI\"\nwork-dir = \"work\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return path, fmt.Errorf("cannot write %s: %w", path, err)
	}
	return path, nil
}

// GameDirPath returns the absolute game directory.
func (c *Config) GameDirPath() string {
	return c.abs(c.Game.GameDir)
}

// WorkDirPath returns the absolute working directory.
func (c *Config) WorkDirPath() string {
	return c.abs(c.Game.WorkDir)
}

// DecodedDir is where converted files land, mirroring the game tree.
func (c *Config) DecodedDir() string {
	return filepath.Join(c.WorkDirPath(), "decoded")
}

// ExtractedDir is where archive contents are unpacked.
func (c *Config) ExtractedDir() string {
	return filepath.Join(c.WorkDirPath(), "extracted")
}

// BuildDir is where recompiled files are assembled.
func (c *Config) BuildDir() string {
	return filepath.Join(c.WorkDirPath(), "build")
}

// ScriptsDir is where generated driver scripts go.
func (c *Config) ScriptsDir() string {
	return filepath.Join(c.WorkDirPath(), "scripts")
}

// CatalogPath is the scan database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.WorkDirPath(), "catalog.db")
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
