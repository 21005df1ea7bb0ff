package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenlabs/warden/internal/setup/config"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warden.toml"), []byte(content), 0o644))
	t.Chdir(dir)
}

func TestLoadConfig(t *testing.T) {
	writeConfig(t, `
version = 1

[debug]
log_level = "info"

[safety]
rate_limit = 7
strict_mode = false
`)

	cfg, path, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", path)
	assert.Equal(t, 7, cfg.Safety.RateLimit)

	// Keys not present in the file keep their defaults.
	assert.Equal(t, 1000, cfg.Safety.MaxMessageLength)
	assert.Equal(t, 80, cfg.Safety.SafeThreshold)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
}

func TestLoadConfigMissingVersion(t *testing.T) {
	writeConfig(t, `
[safety]
rate_limit = 7
`)

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrConfigVersionMissing)
}

func TestLoadConfigVersionMismatch(t *testing.T) {
	writeConfig(t, `version = 99`)

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
}

func TestLoadConfigInvalidThresholds(t *testing.T) {
	writeConfig(t, `
version = 1

[safety]
safe_threshold = 50
warning_threshold = 60
danger_threshold = 40
`)

	_, _, err := config.LoadConfig()
	require.ErrorIs(t, err, config.ErrInvalidThresholds)
}

func TestStrictMode(t *testing.T) {
	writeConfig(t, `
version = 1

[safety]
strict_mode = true
`)

	cfg, _, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Safety.SafeThreshold)
	assert.Equal(t, 70, cfg.Safety.WarningThreshold)
	assert.Equal(t, 5, cfg.Safety.RateLimit, "strict mode halves the quota")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultSafety()
	require.NoError(t, cfg.Validate())

	cfg.MinMessageLength = 50
	cfg.MaxMessageLength = 10
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidThresholds)
}
