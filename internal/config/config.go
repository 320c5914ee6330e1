package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ken/hnswseg/pkg/segment"
)

// Config is the on-disk configuration for a single segment process: its
// graph parameters, the directory snapshots are read from and written to,
// and how verbosely it logs.
type Config struct {
	Segment SegmentConfig `yaml:"segment"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// SegmentConfig mirrors segment.Config in YAML-friendly form.
type SegmentConfig struct {
	M              int     `yaml:"m"`
	M0             int     `yaml:"m0"`
	EfConstruction int     `yaml:"ef_construction"`
	LevelLambda    float64 `yaml:"level_lambda"`
	MaxNodeCount   int     `yaml:"max_node_count"`
	BaseID         uint64  `yaml:"base_id"`
	RemoveEnabled  bool    `yaml:"remove_enabled"`
}

// StorageConfig points at the snapshot directory on disk.
type StorageConfig struct {
	SnapshotDir string `yaml:"snapshot_dir"`
}

// LoggingConfig controls the segment's structured logger.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	d := segment.DefaultConfig()
	return &Config{
		Segment: SegmentConfig{
			M:              d.M,
			M0:             d.M0,
			EfConstruction: d.EfConstruction,
			LevelLambda:    d.LevelLambda,
			MaxNodeCount:   d.MaxNodeCount,
			BaseID:         uint64(d.BaseID),
			RemoveEnabled:  d.RemoveEnabled,
		},
		Storage: StorageConfig{
			SnapshotDir: "./data",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// ToSegmentConfig converts the YAML-shaped config into a segment.Config.
func (c Config) ToSegmentConfig() segment.Config {
	return segment.Config{
		M:              c.Segment.M,
		M0:             c.Segment.M0,
		EfConstruction: c.Segment.EfConstruction,
		LevelLambda:    c.Segment.LevelLambda,
		MaxNodeCount:   c.Segment.MaxNodeCount,
		BaseID:         segment.GlobalID(c.Segment.BaseID),
		RemoveEnabled:  c.Segment.RemoveEnabled,
	}
}

// LoadConfig loads the configuration from path, falling back to defaults
// for any file that does not exist yet.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig writes config to path as YAML, creating the parent directory
// if necessary.
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
