// Package config parses funcps.yaml, grounded on
// _examples/funvibe-funxy/internal/ext/config.go's Config/yaml-tag style
// and FindConfig/LoadConfig/ParseConfig split (read bytes, parse bytes,
// locate the file by walking up from a working directory).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level funcps.yaml shape: where compiled checkpoints
// live, where a resume request should be sent, and which calls the
// compiler should treat as split markers.
type Config struct {
	// Checkpoint configures the on-disk checkpoint store (internal/checkpoint.Store).
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Transport configures the remote resume service (internal/transport).
	Transport TransportConfig `yaml:"transport"`

	// Markers lists function names to treat as split points;
	// internal/strategy.Default recognises exactly the names it is given,
	// with no built-in defaults. cmd/funcps compiles each demo with that
	// demo's own markers and does not read this field.
	Markers []string `yaml:"markers,omitempty"`

	// Color overrides pkg/cpscli's TTY auto-detection: "auto" (default
	// when omitted), "always", or "never".
	Color string `yaml:"color,omitempty"`
}

// CheckpointConfig configures internal/checkpoint.Store.
type CheckpointConfig struct {
	// Path is the SQLite database file checkpoints are persisted to.
	Path string `yaml:"path"`
}

// TransportConfig configures internal/transport's gRPC client/server.
type TransportConfig struct {
	// Address is the "host:port" `funcps serve` listens on when no
	// address argument is given.
	Address string `yaml:"address,omitempty"`
}

// LoadConfig reads and parses a funcps.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses funcps.yaml content from bytes. path is used only
// for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for funcps.yaml (or funcps.yml) starting from dir
// and walking up to parent directories, the same upward search
// ext.FindConfig performs for funxy.yaml. Returns "" with a nil error
// when no config file is found anywhere above dir.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("config: resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"funcps.yaml", "funcps.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) setDefaults() {
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = "funcps-checkpoints.db"
	}
	if c.Color == "" {
		c.Color = "auto"
	}
}

func (c *Config) validate(path string) error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%s: color: must be one of auto, always, never, got %q", path, c.Color)
	}
	return nil
}
