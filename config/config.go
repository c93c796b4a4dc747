// Package config loads the rtsa configuration from a YAML or JSON file with
// RTSA_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rtsa/core/analysis"
	"github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/generator"
	"github.com/kilianp07/rtsa/infra/logger"
)

// EnvPrefix marks environment overrides. Nested keys use "__", e.g.
// RTSA_ANALYSIS__METHOD=joseph.
const EnvPrefix = "RTSA_"

type Config struct {
	Logging   logger.Config    `json:"logging"`
	Analysis  analysis.Config  `json:"analysis"`
	Generator generator.Config `json:"generator"`
	Metrics   metrics.Config   `json:"metrics"`
	Batch     BatchConfig      `json:"batch"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Analysis.SetDefaults()
	c.Generator.SetDefaults()
	c.Batch.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	return c.Batch.Validate()
}

// Load reads the configuration file at path, applies environment overrides,
// defaults and validation. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
