// Package config loads CLI and server defaults from a YAML file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/james-see/stablearp/pkg/params"
)

// Config holds user defaults. Flags override these values.
type Config struct {
	Algorithm string  `yaml:"algorithm"`
	Seed      int64   `yaml:"seed"`
	Direction string  `yaml:"direction"`
	Zigzag    bool    `yaml:"zigzag"`
	Speed     string  `yaml:"speed"`
	Tempo     float64 `yaml:"tempo"`
	Port      int     `yaml:"port"`
	Debug     bool    `yaml:"debug"`
	DebugLog  string  `yaml:"debugLog,omitempty"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Algorithm: "random",
		Direction: "up",
		Speed:     "1/16",
		Tempo:     120,
		Port:      8080,
	}
}

// Dir returns ~/.config/stablearp
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stablearp"), nil
}

// Path returns the default config file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path, or the default path when empty. A missing file yields
// defaults; fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the enumerated fields and tempo
func (c *Config) Validate() error {
	_, err := c.Snapshot()
	if err != nil {
		return err
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("tempo must be positive, got %v", c.Tempo)
	}
	return nil
}

// Snapshot converts the config into parameter values
func (c *Config) Snapshot() (params.Snapshot, error) {
	algo, err := params.ParseAlgo(c.Algorithm)
	if err != nil {
		return params.Snapshot{}, err
	}
	dir, err := params.ParseDirection(c.Direction)
	if err != nil {
		return params.Snapshot{}, err
	}
	speed, err := params.ParseSpeed(c.Speed)
	if err != nil {
		return params.Snapshot{}, err
	}
	return params.Snapshot{
		Algorithm: algo,
		Speed:     speed,
		Seed:      c.Seed,
		Direction: dir,
		Zigzag:    c.Zigzag,
	}, nil
}

// Apply pushes the config into p
func (c *Config) Apply(p *params.Parameters) error {
	s, err := c.Snapshot()
	if err != nil {
		return err
	}
	p.Apply(s)
	return nil
}
