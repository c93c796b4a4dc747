package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `logging:
  backend: logrus
  level: debug
analysis:
  method: joseph
  max_iterations: 500
  server_periods: [4, 8]
  seed_delays: true
generator:
  seed: 42
  max_attempts: 50
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
batch:
  sets_per_profile: 3
  format: csv
  timeout: 30s
  profiles:
    - tasks: 3
      utilization: 0.7
      min_period: 5
      max_period: 20
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"logging.backend", cfg.Logging.Backend, "logrus"},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"analysis.method", cfg.Analysis.Method, "joseph"},
		{"analysis.max_iterations", cfg.Analysis.MaxIterations, 500},
		{"analysis.seed_delays", cfg.Analysis.SeedDelays, true},
		{"generator.seed", cfg.Generator.Seed, int64(42)},
		{"generator.max_attempts", cfg.Generator.MaxAttempts, 50},
		{"generator.rounding", cfg.Generator.Rounding, "ceil"},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"batch.sets_per_profile", cfg.Batch.SetsPerProfile, 3},
		{"batch.format", cfg.Batch.Format, "csv"},
		{"batch.timeout", cfg.Batch.Timeout, 30 * time.Second},
		{"batch.profiles", len(cfg.Batch.Profiles), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
	assert.Equal(t, []int64{4, 8}, cfg.Analysis.ServerPeriods)
	assert.Equal(t, 0.7, cfg.Batch.Profiles[0].Utilization)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "zerolog", cfg.Logging.Backend)
	assert.Equal(t, "rta", cfg.Analysis.Method)
	assert.Positive(t, cfg.Analysis.Workers)
	assert.Equal(t, DefaultProfiles(), cfg.Batch.Profiles)
	assert.Equal(t, 1, cfg.Batch.SetsPerProfile)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RTSA_ANALYSIS__METHOD", "incremental")
	t.Setenv("RTSA_GENERATOR__SEED", "7")
	t.Setenv("RTSA_LOGGING__BACKEND", "slog")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "incremental", cfg.Analysis.Method)
	assert.Equal(t, int64(7), cfg.Generator.Seed)
	assert.Equal(t, "slog", cfg.Logging.Backend)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"analysis":{"method":"rta","workers":2}}`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Workers)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "config.toml"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("analysis:\n  method: bogus\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	badProfile := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(badProfile, []byte("batch:\n  profiles:\n    - tasks: 0\n"), 0o644))
	_, err = Load(badProfile)
	assert.Error(t, err)
}
