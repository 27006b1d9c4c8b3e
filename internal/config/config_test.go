package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD", "SNOWFLAKE_ROLE",
		"SNOWFLAKE_WAREHOUSE", "SNOWFLAKE_AUTHENTICATOR", "SNOWFLAKE_PRIVATE_KEY_PATH",
		"GEMINI_API_KEY", "DRIVERCHECK_CLASSIFIER", "DRIVERCHECK_LOOKBACK_DAYS",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
snowflake:
  account: acme-prod
  user: auditor
  role: ACCOUNTADMIN
lookback_days: 7
classifier: Cortex
retry:
  attempts: 5
  delay: 250ms
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme-prod", cfg.Snowflake.Account)
	assert.Equal(t, "ACCOUNTADMIN", cfg.Snowflake.Role)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, ClassifierCortex, cfg.Classifier)
	assert.Equal(t, uint(5), cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	// Unset fields keep their defaults.
	assert.Equal(t, "openai-gpt-4.1", cfg.Cortex.Model)
	assert.Equal(t, 20, cfg.KeepRuns)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lookback_days: [oops"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNOWFLAKE_PASSWORD", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snowflake:\n  password: from-file\n"), 0600))

	onDisk, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", onDisk.Snowflake.Password)
	assert.Equal(t, 30, onDisk.LookbackDays)

	merged, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", merged.Snowflake.Password)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("snowflake credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SNOWFLAKE_ACCOUNT", "env-account")
		t.Setenv("SNOWFLAKE_PASSWORD", "secret")

		cfg := &Config{Snowflake: SnowflakeConfig{Account: "file-account", User: "file-user"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-account", cfg.Snowflake.Account)
		assert.Equal(t, "secret", cfg.Snowflake.Password)
		assert.Equal(t, "file-user", cfg.Snowflake.User)
	})

	t.Run("classifier and lookback", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DRIVERCHECK_CLASSIFIER", " GEMINI ")
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("DRIVERCHECK_LOOKBACK_DAYS", "14")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, ClassifierGemini, cfg.Classifier)
		assert.Equal(t, "g-key", cfg.Gemini.APIKey)
		assert.Equal(t, 14, cfg.LookbackDays)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad lookback ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DRIVERCHECK_LOOKBACK_DAYS", "a month")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 30, cfg.LookbackDays)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero lookback", func(c *Config) { c.LookbackDays = 0 }, false},
		{"unknown classifier", func(c *Config) { c.Classifier = "oracle" }, false},
		{"zero attempts", func(c *Config) { c.Retry.Attempts = 0 }, false},
		{"negative keep", func(c *Config) { c.KeepRuns = -1 }, false},
		{"gemini without key", func(c *Config) { c.Classifier = ClassifierGemini }, false},
		{"cortex", func(c *Config) { c.Classifier = ClassifierCortex }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateSnowflake(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.ValidateSnowflake(), ErrMissingAccount)

	cfg.Snowflake.Account = "acme"
	assert.Error(t, cfg.ValidateSnowflake(), "user is required")

	cfg.Snowflake.User = "auditor"
	assert.NoError(t, cfg.ValidateSnowflake())
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Snowflake.Account = "acme"
	cfg.LookbackDays = 90
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
