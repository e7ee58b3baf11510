// Package cfgload loads and merges cribo's bundling configuration from
// three layers, lowest to highest precedence: a `cribo.yaml` file next
// to the entry script, the CRIBO_PYTHONPATH/PYTHONPATH environment
// variables, and explicit CLI flags (applied by cmd/cribo after Load
// returns). Grounded on the Load/Save/Validate shape of the teacher's
// internal/manifest.Manifest, generalized from AILANG's example
// manifest (JSON, example-list schema) to cribo's bundling config
// (YAML, source-roots/version/output schema).
package cfgload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaVersion identifies the config file schema.
const SchemaVersion = "cribo.config/v1"

// FileName is the conventional config file name, looked up next to the
// entry script (see DefaultPath).
const FileName = "cribo.yaml"

// Config is the on-disk + environment-merged bundling configuration.
type Config struct {
	Schema        string   `yaml:"schema,omitempty"`
	SourceRoots   []string `yaml:"source_roots,omitempty"`
	PythonVersion string   `yaml:"python_version,omitempty"`
	Output        string   `yaml:"output,omitempty"`
	NoTreeShake   bool     `yaml:"no_tree_shake,omitempty"`
}

// New returns an empty Config with the schema tag set.
func New() *Config {
	return &Config{Schema: SchemaVersion}
}

// Load reads a cribo.yaml at path if it exists (absence is not an
// error — Load then returns an empty Config so environment/flag layers
// can still apply), then merges in CRIBO_PYTHONPATH / PYTHONPATH.
func Load(path string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.SourceRoots = append(cfg.SourceRoots, pathListFromEnv("CRIBO_PYTHONPATH")...)
	cfg.SourceRoots = append(cfg.SourceRoots, pathListFromEnv("PYTHONPATH")...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the config back out as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.PythonVersion != "" {
		if _, _, err := ParsePythonVersion(c.PythonVersion); err != nil {
			return err
		}
	}
	for _, root := range c.SourceRoots {
		if root == "" {
			return fmt.Errorf("empty entry in source_roots")
		}
	}
	return nil
}

// ParsePythonVersion parses a "3.12"-style string into (major, minor).
func ParsePythonVersion(v string) (int, int, error) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid python_version %q: expected MAJOR.MINOR", v)
	}
	var major, minor int
	if _, err := fmt.Sscanf(parts[0], "%d", &major); err != nil {
		return 0, 0, fmt.Errorf("invalid python_version %q: %w", v, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minor); err != nil {
		return 0, 0, fmt.Errorf("invalid python_version %q: %w", v, err)
	}
	return major, minor, nil
}

func pathListFromEnv(name string) []string {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(val, string(os.PathListSeparator)) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPath returns the conventional cribo.yaml path for an entry
// script: next to the entry file, falling back to the current
// directory if the entry has no directory component.
func DefaultPath(entry string) string {
	dir := filepath.Dir(entry)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}
