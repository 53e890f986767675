package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvascue/accounting/pkg/config"
)

type sweepConfig struct {
	Schedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 5m"`
	Batch    int           `env:"SWEEP_BATCH" envDefault:"100"`
	Timeout  time.Duration `env:"SWEEP_TIMEOUT" envDefault:"30s"`
	Enabled  bool          `env:"SWEEP_ENABLED" envDefault:"true"`
}

type requiredConfig struct {
	Key string `env:"CONFIG_TEST_REQUIRED_KEY,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg sweepConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "@every 5m", cfg.Schedule)
		assert.Equal(t, 100, cfg.Batch)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.True(t, cfg.Enabled)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("SWEEP_BATCH", "25")
		t.Setenv("SWEEP_ENABLED", "false")

		var cfg sweepConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 25, cfg.Batch)
		assert.False(t, cfg.Enabled)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Setenv("NIGHTLY_SWEEP_BATCH", "7")

		var cfg sweepConfig
		require.NoError(t, config.Load(&cfg, config.WithPrefix("NIGHTLY_")))
		assert.Equal(t, 7, cfg.Batch)
	})

	t.Run("each call sees the current environment", func(t *testing.T) {
		var first, second sweepConfig
		t.Setenv("SWEEP_SCHEDULE", "@hourly")
		require.NoError(t, config.Load(&first))
		t.Setenv("SWEEP_SCHEDULE", "@daily")
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "@hourly", first.Schedule)
		assert.Equal(t, "@daily", second.Schedule)
	})

	t.Run("missing required value", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("SWEEP_BATCH", "many")
		var cfg sweepConfig
		assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[sweepConfig](nil), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		var cfg requiredConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}

func TestLoad_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFIG_TEST_REQUIRED_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CONFIG_TEST_REQUIRED_KEY") })

	var cfg requiredConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(path)))
	assert.Equal(t, "from-file", cfg.Key)

	err := config.Load(&cfg, config.WithEnvFiles(filepath.Join(dir, "missing.env")))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
