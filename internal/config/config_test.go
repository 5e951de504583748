package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                    "9000",
		Env:                     "development",
		DBDriver:                "sqlite",
		SessionSecret:           "secure-secret-at-least-32-chars-long",
		SessionTTLMillis:        86400000,
		BcryptCost:              10,
		DuplicateUsernamePolicy: DuplicatePolicyReject,
		ImageMaxUploadSizeMB:    10,
	}
}

func TestConfig_ValidateProductionRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"development defaults", func(c *Config) {}, false},
		{"production with default secret", func(c *Config) {
			c.Env = "production"
			c.SessionSecret = defaultSessionSecret
		}, true},
		{"production with short secret", func(c *Config) {
			c.Env = "prod"
			c.SessionSecret = "short"
		}, true},
		{"production postgres without ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres with ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "strong-password"
			c.DBSSLMode = "require"
		}, false},
		{"unknown duplicate policy", func(c *Config) { c.DuplicateUsernamePolicy = "maybe" }, true},
		{"store duplicate policy", func(c *Config) { c.DuplicateUsernamePolicy = DuplicatePolicyStore }, false},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 1 }, true},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 40 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"zero session ttl", func(c *Config) { c.SessionTTLMillis = 0 }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"tracing with unknown exporter", func(c *Config) {
			c.TracingEnabled = true
			c.TracingExporter = "jaeger"
		}, true},
		{"tracing with otlp exporter", func(c *Config) {
			c.TracingEnabled = true
			c.TracingExporter = "otlp"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("DUPLICATE_USERNAME_POLICY")

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("DUPLICATE_USERNAME_POLICY", " Store ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, DuplicatePolicyStore, c.DuplicateUsernamePolicy)
	assert.Equal(t, int64(86400000), c.SessionTTLMillis)
	assert.Equal(t, 10, c.BcryptCost)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FOLIO_TEST_ONLY=from-file\nFOLIO_TEST_KEEP=from-file\n"), 0o600))

	t.Setenv("FOLIO_TEST_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("FOLIO_TEST_ONLY") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("FOLIO_TEST_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("FOLIO_TEST_KEEP"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}
