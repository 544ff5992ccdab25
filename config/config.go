// Package config handles fusabi.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file the loader looks for.
const FileName = "fusabi.toml"

// Config represents a fusabi.toml project configuration.
type Config struct {
	Project Project      `toml:"project"`
	Assets  Assets       `toml:"assets"`
	Runner  RunnerConfig `toml:"runner"`

	// Dir is the directory containing the fusabi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Assets configures script locations and hot reload.
type Assets struct {
	Dirs  []string `toml:"dirs"`
	Watch bool     `toml:"watch"`
}

// RunnerConfig configures the execution driver.
type RunnerConfig struct {
	// MaxAttempts is the failed-attempt budget per runner. Unset picks
	// the default; a negative value means retry forever.
	MaxAttempts int `toml:"max-attempts"`

	// TickMillis is the scheduling pass interval in milliseconds.
	TickMillis int `toml:"tick-ms"`
}

// Default returns the configuration used when no fusabi.toml exists.
func Default() *Config {
	return &Config{
		Assets: Assets{Dirs: []string{"scripts"}},
		Runner: RunnerConfig{MaxAttempts: 3, TickMillis: 16},
	}
}

// Load parses a fusabi.toml file from the given directory.
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
	if len(c.Assets.Dirs) == 0 {
		c.Assets.Dirs = []string{"scripts"}
	}
	if c.Runner.MaxAttempts == 0 {
		c.Runner.MaxAttempts = 3
	}
	if c.Runner.TickMillis <= 0 {
		c.Runner.TickMillis = 16
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a fusabi.toml file, then
// loads and returns the configuration. Returns nil if none is found.
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
