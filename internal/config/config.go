// Package config loads borrowck.toml (or .borrowck.yaml) project settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"borrowck/internal/diagfmt"
)

// FileNames are probed in this order in every directory.
var FileNames = []string{"borrowck.toml", ".borrowck.yaml", ".borrowck.yml"}

// ErrNotFound is returned by Find and Discover when no config file exists
// between the start directory and the filesystem root.
var ErrNotFound = errors.New("config file not found")

type Config struct {
	// Path is the file the config was read from; empty for defaults.
	Path     string   `toml:"-" yaml:"-"`
	Analysis Analysis `toml:"analysis" yaml:"analysis"`
	Output   Output   `toml:"output" yaml:"output"`
	Files    Files    `toml:"files" yaml:"files"`
	Cache    Cache    `toml:"cache" yaml:"cache"`
}

type Analysis struct {
	MaxIterations        int  `toml:"max_iterations" yaml:"max_iterations"`
	SplitConstantIndices bool `toml:"split_constant_indices" yaml:"split_constant_indices"`
}

type Output struct {
	Format         string `toml:"format" yaml:"format"`
	MaxDiagnostics int    `toml:"max_diagnostics" yaml:"max_diagnostics"`
	WithNotes      bool   `toml:"with_notes" yaml:"with_notes"`
}

// Files selects what a directory check visits.
type Files struct {
	Extensions []string `toml:"extensions" yaml:"extensions"`
	// Exclude holds filepath.Match patterns tested against base names.
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

type Cache struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Dir     string `toml:"dir" yaml:"dir"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Analysis: Analysis{MaxIterations: 10000},
		Output:   Output{Format: "pretty", MaxDiagnostics: 100, WithNotes: true},
		Files:    Files{Extensions: []string{".rsl", ".rs"}},
		Cache:    Cache{Dir: ".borrowck-cache"},
	}
}

// Find walks up from startDir and returns the first config file.
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Load reads the file at path; the format follows its extension. Keys that
// are not part of Config are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%s: unsupported config extension %q", path, ext)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds and loads the config governing startDir. When there is
// none it returns Default() together with ErrNotFound.
func Discover(startDir string) (Config, error) {
	path, err := Find(startDir)
	if err != nil {
		return Default(), err
	}
	return Load(path)
}

func (c *Config) Validate() error {
	if c.Analysis.MaxIterations <= 0 {
		return fmt.Errorf("[analysis].max_iterations must be positive, got %d", c.Analysis.MaxIterations)
	}
	if _, err := diagfmt.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("[output].format: %w", err)
	}
	if c.Output.MaxDiagnostics < 0 {
		return fmt.Errorf("[output].max_diagnostics must not be negative, got %d", c.Output.MaxDiagnostics)
	}
	for _, pattern := range c.Files.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("[files].exclude: bad pattern %q: %w", pattern, err)
		}
	}
	for i, ext := range c.Files.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Files.Extensions[i] = "." + ext
		}
	}
	return nil
}

// Wants reports whether a directory walk should check the file at path.
// Without extensions every non-excluded file is wanted.
func (f Files) Wants(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	if len(f.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, want := range f.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// Excluded reports whether a directory walk should skip the directory.
func (f Files) Excluded(dir string) bool {
	base := filepath.Base(dir)
	for _, pattern := range f.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
