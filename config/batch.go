package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/rtsa/core/model"
	"github.com/kilianp07/rtsa/generator"
	"github.com/kilianp07/rtsa/pkg/export"
)

// BatchConfig drives "rtsa batch": generate schedulable sets for every
// profile, analyze them and export the reports.
type BatchConfig struct {
	Profiles       []model.GenerateSpec `json:"profiles"`
	SetsPerProfile int                  `json:"sets_per_profile"`
	// Output is the report file. Empty writes to stdout.
	Output string `json:"output"`
	// Format is one of export.Formats.
	Format string `json:"format"`
	// Timeout bounds the whole run. Zero disables it.
	Timeout time.Duration `json:"timeout"`
}

// DefaultProfiles are the parameter sets of the historical batch generator.
func DefaultProfiles() []model.GenerateSpec {
	return []model.GenerateSpec{
		{Tasks: 4, Utilization: 0.8, MinPeriod: 3, MaxPeriod: 40},
		{Tasks: 5, Utilization: 0.9, MinPeriod: 3, MaxPeriod: 50},
		{Tasks: 5, Utilization: 0.95, MinPeriod: 5, MaxPeriod: 60},
	}
}

// SetDefaults applies sane defaults.
func (c *BatchConfig) SetDefaults() {
	if len(c.Profiles) == 0 {
		c.Profiles = DefaultProfiles()
	}
	if c.SetsPerProfile <= 0 {
		c.SetsPerProfile = 1
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks mandatory fields.
func (c BatchConfig) Validate() error {
	if !slices.Contains(export.Formats, c.Format) {
		return fmt.Errorf("batch: unknown format %s", c.Format)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("batch: negative timeout")
	}
	for i, p := range c.Profiles {
		if err := generator.ValidateSpec(p); err != nil {
			return fmt.Errorf("batch profile %d: %w", i, err)
		}
	}
	return nil
}
