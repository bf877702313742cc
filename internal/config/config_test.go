package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/constants"
)

func isolated(t *testing.T) Options {
	t.Helper()
	for _, key := range []string{"DATABASE", "DEBUG", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "STRIDE", "MAX_RETRIES", "DEFAULT_COUNT", "DB_CONNECTION"} {
		t.Setenv(constants.EnvPrefix+"_"+key, "")
		os.Unsetenv(constants.EnvPrefix + "_" + key)
	}
	dir := t.TempDir()
	return Options{Dir: dir, EnvFile: filepath.Join(dir, "missing.env")}
}

func TestLoadDefaults(t *testing.T) {
	opts := isolated(t)

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.Dir, "cadence.db"), cfg.Database)
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, constants.StrideFixed, cfg.Stride)
	assert.Equal(t, constants.DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, constants.DefaultExpandCount, cfg.DefaultCount)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Debug)
}

func TestLoadFileThenEnv(t *testing.T) {
	opts := isolated(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.Dir, "config.yaml"), []byte(
		"timezone: Europe/Paris\nstride: calendar\nmax_retries: 3\n"), 0600))
	t.Setenv("CADENCE_MAX_RETRIES", "9")
	t.Setenv("CADENCE_LOG_FORMAT", "json")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, constants.StrideCalendar, cfg.Stride)
	assert.Equal(t, 9, cfg.MaxRetries)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadDotEnv(t *testing.T) {
	opts := isolated(t)
	opts.EnvFile = filepath.Join(opts.Dir, "test.env")
	require.NoError(t, os.WriteFile(opts.EnvFile, []byte("CADENCE_DEFAULT_COUNT=25\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("CADENCE_DEFAULT_COUNT") })

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.DefaultCount)
}

func TestConnectionOverride(t *testing.T) {
	opts := isolated(t)
	t.Setenv(constants.EnvDBConnection, "keyring:work")

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "keyring:work", cfg.Database)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"stride":   "stride: lunar\n",
		"timezone": "timezone: Mars/Olympus\n",
		"count":    "default_count: 0\n",
		"level":    "log_level: chatty\n",
		"format":   "log_format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			opts := isolated(t)
			require.NoError(t, os.WriteFile(filepath.Join(opts.Dir, "config.yaml"), []byte(body), 0600))
			_, err := Load(opts)
			assert.Error(t, err)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	opts := isolated(t)
	want := Config{
		Database:     filepath.Join(opts.Dir, "other.db"),
		Timezone:     "UTC",
		LogFormat:    "json",
		Stride:       constants.StrideCalendar,
		MaxRetries:   2,
		DefaultCount: 7,
	}

	path, err := Write(opts.Dir, want)
	require.NoError(t, err)
	assert.FileExists(t, path)

	got, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
