package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.Simulation.Seed)
	assert.Equal(t, 8, cfg.Simulation.ActionQueueLimit)
	assert.Equal(t, int64(600), cfg.Simulation.ActionTimeoutTicks)
	assert.Equal(t, 256, cfg.Skills.CacheLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
simulation:
  seed: 42
  action_queue_limit: 4
skills:
  definition_file: skills/custom.yaml
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 4, cfg.Simulation.ActionQueueLimit)
	assert.Equal(t, "skills/custom.yaml", cfg.Skills.DefinitionFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, int64(600), cfg.Simulation.ActionTimeoutTicks)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
