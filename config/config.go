// Package config loads the YAML settings shared by the inspector and the tools.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/rig_importer/importer"
	"github.com/mogaika/rig_importer/logger"
)

type Config struct {
	Import  Import  `yaml:"import"`
	Logging Logging `yaml:"logging"`
	Web     Web     `yaml:"web"`
}

type Import struct {
	StrictKeyframes    bool `yaml:"strict_keyframes"`
	CubicAsLinear      bool `yaml:"cubic_as_linear"`
	SkipAnimations     bool `yaml:"skip_animations"`
	SkipMeshes         bool `yaml:"skip_meshes"`
	BakeNodeTransforms bool `yaml:"bake_node_transforms"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	// Rotation of File, lumberjack units.
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

type Web struct {
	Addr string `yaml:"addr"`
	// Dir is scanned for importable files.
	Dir string `yaml:"dir"`
}

func Default() *Config {
	fc := logger.DefaultFileConfig("")
	return &Config{
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  fc.MaxSizeMB,
			MaxBackups: fc.MaxBackups,
			MaxAgeDays: fc.MaxAgeDays,
			Compress:   fc.Compress,
		},
		Web: Web{
			Addr: ":8000",
			Dir:  ".",
		},
	}
}

// Load overlays the file at path on top of Default. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return nil
}

func (c *Config) ImportOptions() importer.Options {
	return importer.Options{
		StrictKeyframes:    c.Import.StrictKeyframes,
		CubicAsLinear:      c.Import.CubicAsLinear,
		SkipAnimations:     c.Import.SkipAnimations,
		SkipMeshes:         c.Import.SkipMeshes,
		BakeNodeTransforms: c.Import.BakeNodeTransforms,
	}
}

func (c *Config) LogFileConfig() logger.FileConfig {
	return logger.FileConfig{
		Path:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
	}
}
