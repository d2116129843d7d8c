// Package config handles c0vm.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "c0vm.toml"

// Config represents a c0vm.toml configuration.
type Config struct {
	VM    VMConfig    `toml:"vm"`
	Log   LogConfig   `toml:"log"`
	Image ImageConfig `toml:"image"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// VMConfig holds the interpreter's resource guards. Zero disables a guard.
type VMConfig struct {
	MaxCallDepth int `toml:"max-call-depth"`
	HeapLimit    int `toml:"heap-limit"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// ImageConfig configures the CBOR image cache.
type ImageConfig struct {
	WriteCache bool `toml:"write-cache"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{}
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	c.Path = path
	return c, nil
}

// FindAndLoad walks up from startDir to find a c0vm.toml file and loads
// it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.VM.MaxCallDepth < 0 {
		return fmt.Errorf("vm.max-call-depth must not be negative, got %d", c.VM.MaxCallDepth)
	}
	if c.VM.HeapLimit < 0 {
		return fmt.Errorf("vm.heap-limit must not be negative, got %d", c.VM.HeapLimit)
	}
	return nil
}

// LogFile returns the configured log path, or nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	return &c.Log.File
}
