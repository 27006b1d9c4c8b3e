// Package config loads drivercheck settings: the YAML config file,
// environment overrides and the driver alias file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Classifier names.
const (
	ClassifierRule   = "rule"
	ClassifierCortex = "cortex"
	ClassifierGemini = "gemini"
)

// ValidClassifiers lists the accepted classifier names.
var ValidClassifiers = []string{ClassifierRule, ClassifierCortex, ClassifierGemini}

// ErrMissingAccount is returned when a Snowflake connection is needed but no
// account is configured.
var ErrMissingAccount = errors.New("snowflake account not configured (set snowflake.account or SNOWFLAKE_ACCOUNT)")

// Config holds all drivercheck settings.
type Config struct {
	Snowflake    SnowflakeConfig `yaml:"snowflake"`
	LookbackDays int             `yaml:"lookback_days"`
	Classifier   string          `yaml:"classifier"`
	Cortex       CortexConfig    `yaml:"cortex"`
	Gemini       GeminiConfig    `yaml:"gemini"`
	Retry        RetryConfig     `yaml:"retry"`
	KeepRuns     int             `yaml:"keep_runs"`
}

// SnowflakeConfig holds connection settings. Authenticator is passed to the
// driver as-is: "snowflake" (password), "externalbrowser" or "snowflake_jwt"
// (key pair, with PrivateKeyPath).
type SnowflakeConfig struct {
	Account        string `yaml:"account"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Role           string `yaml:"role"`
	Warehouse      string `yaml:"warehouse"`
	Authenticator  string `yaml:"authenticator"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// CortexConfig configures the Snowflake Cortex classifier.
type CortexConfig struct {
	Model string `yaml:"model"`
}

// GeminiConfig configures the Gemini classifier.
type GeminiConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// RetryConfig controls retries of remote queries and model calls.
type RetryConfig struct {
	Attempts uint          `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LookbackDays: 30,
		Classifier:   ClassifierRule,
		Cortex:       CortexConfig{Model: "openai-gpt-4.1"},
		Gemini:       GeminiConfig{Model: "gemini-2.0-flash"},
		Retry:        RetryConfig{Attempts: 3, Delay: time.Second},
		KeepRuns:     20,
	}
}

// DefaultPath returns {Dir()}/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile is Load without environment overrides: the defaults plus
// whatever the file at path holds.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// May hold credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	envs := []struct {
		name string
		dst  *string
	}{
		{"SNOWFLAKE_ACCOUNT", &c.Snowflake.Account},
		{"SNOWFLAKE_USER", &c.Snowflake.User},
		{"SNOWFLAKE_PASSWORD", &c.Snowflake.Password},
		{"SNOWFLAKE_ROLE", &c.Snowflake.Role},
		{"SNOWFLAKE_WAREHOUSE", &c.Snowflake.Warehouse},
		{"SNOWFLAKE_AUTHENTICATOR", &c.Snowflake.Authenticator},
		{"SNOWFLAKE_PRIVATE_KEY_PATH", &c.Snowflake.PrivateKeyPath},
		{"GEMINI_API_KEY", &c.Gemini.APIKey},
		{"DRIVERCHECK_CLASSIFIER", &c.Classifier},
	}
	for _, e := range envs {
		if v := os.Getenv(e.name); v != "" {
			*e.dst = v
		}
	}
	if v := os.Getenv("DRIVERCHECK_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LookbackDays = n
		}
	}
	c.Classifier = strings.ToLower(strings.TrimSpace(c.Classifier))
}

// Validate checks settings that do not depend on which command runs.
func (c *Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive, got %d", c.LookbackDays)
	}
	if !ValidClassifier(c.Classifier) {
		return fmt.Errorf("invalid classifier: %q (valid: %v)", c.Classifier, ValidClassifiers)
	}
	if c.Retry.Attempts == 0 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if c.KeepRuns < 0 {
		return fmt.Errorf("keep_runs must not be negative, got %d", c.KeepRuns)
	}
	if c.Classifier == ClassifierGemini && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini classifier needs an API key (set gemini.api_key or GEMINI_API_KEY)")
	}
	return nil
}

// ValidateSnowflake checks that enough is configured to open a connection.
func (c *Config) ValidateSnowflake() error {
	if c.Snowflake.Account == "" {
		return ErrMissingAccount
	}
	if c.Snowflake.User == "" {
		return fmt.Errorf("snowflake user not configured (set snowflake.user or SNOWFLAKE_USER)")
	}
	return nil
}

// ValidClassifier reports whether name is a known classifier.
func ValidClassifier(name string) bool {
	for _, v := range ValidClassifiers {
		if v == name {
			return true
		}
	}
	return false
}
