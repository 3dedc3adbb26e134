// Package config handles lispik.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name searched for by FindAndLoad.
const FileName = "lispik.toml"

// Config represents a lispik.toml file.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	REPL    REPL    `toml:"repl"`
	Store   Store   `toml:"store"`
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the lispik.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures compilation and execution.
type Runtime struct {
	GlobalEnv *bool `toml:"global-env"`
	MaxSteps  int   `toml:"max-steps"`
	Trace     bool  `toml:"trace"`
}

// REPL configures the interactive loop.
type REPL struct {
	Prompt       string `toml:"prompt"`
	HistoryFile  string `toml:"history-file"`
	ShowBytecode bool   `toml:"show-bytecode"`
}

// Store configures the session journal.
type Store struct {
	Path string `toml:"path"`
}

// Server configures the evaluation server.
type Server struct {
	Addr string `toml:"addr"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no lispik.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a lispik.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes configuration text and applies defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, err
	}
	if c.Runtime.MaxSteps < 0 {
		return nil, fmt.Errorf("runtime.max-steps must not be negative, got %d", c.Runtime.MaxSteps)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a lispik.toml file,
// then loads and returns it. Returns Default() if none is found.
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
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Runtime.GlobalEnv == nil {
		enabled := true
		c.Runtime.GlobalEnv = &enabled
	}
	if c.REPL.Prompt == "" {
		c.REPL.Prompt = "> "
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:7400"
	}
}

// GlobalEnv reports whether global mode is enabled.
func (c *Config) GlobalEnv() bool {
	return c.Runtime.GlobalEnv == nil || *c.Runtime.GlobalEnv
}

// Resolve makes a configured path absolute relative to the config file.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// StorePath returns the absolute journal path, or "" when journaling is off.
func (c *Config) StorePath() string {
	return c.Resolve(c.Store.Path)
}

// HistoryPath returns the absolute REPL history path, or "" when disabled.
func (c *Config) HistoryPath() string {
	return c.Resolve(c.REPL.HistoryFile)
}
