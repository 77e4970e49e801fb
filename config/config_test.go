package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with PORT and MONGO_URI cleared.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PORT", "")
	t.Setenv("MONGO_URI", "")
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig(DefaultEnvFile)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "", cfg.MongoURI)
	assert.Equal(t, 30*time.Second, cfg.Mongo.ConnectTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(100*1024), cfg.HTTP.JSONLimit)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.PortDiscarded())
}

func TestLoadConfig_Port(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      int
		discarded bool
	}{
		{"valid port", "8080", 8080, false},
		{"lowest port", "1", 1, false},
		{"highest port", "65535", 65535, false},
		{"surrounding spaces", " 3000 ", 3000, false},
		{"default value given explicitly", "5000", 5000, false},
		{"not a number", "abc", 5000, true},
		{"zero", "0", 5000, true},
		{"negative", "-1", 5000, true},
		{"too large", "70000", 5000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("PORT", tt.raw)

			cfg, err := LoadConfig("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Port)
			assert.Equal(t, tt.discarded, cfg.PortDiscarded())
			assert.Equal(t, tt.raw, cfg.RawPort)
		})
	}
}

func TestLoadConfig_MongoURIPassedThrough(t *testing.T) {
	isolate(t)
	t.Setenv("MONGO_URI", "not even a uri")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "not even a uri", cfg.MongoURI)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("PORT")
	os.Unsetenv("MONGO_URI")

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=7070\nMONGO_URI=mongodb://db.example:27017/app\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("MONGO_URI")
	})

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "mongodb://db.example:27017/app", cfg.MongoURI)
}

func TestLoadConfig_EnvironmentWinsOverEnvFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("PORT", "9090")

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=7070\n"), 0o600))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadConfig_MissingEnvFileIgnored(t *testing.T) {
	isolate(t)

	_, err := LoadConfig("does-not-exist.env")
	assert.NoError(t, err)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	dir := isolate(t)

	yaml := []byte(`
mongo:
  connect_timeout: 5s
log:
  level: debug
metrics:
  enabled: true
rate_limit:
  requests_per_second: 10
  burst: 20
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Mongo.ConnectTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoadConfig_PrefixedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BACKEND_LOG_LEVEL", "warn")
	t.Setenv("BACKEND_METRICS_ENABLED", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	isolate(t)
	t.Setenv("BACKEND_LOG_LEVEL", "chatty")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "Level")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"port out of range", func(c *Config) { c.Port = 0 }, true},
		{"zero connect timeout", func(c *Config) { c.Mongo.ConnectTimeout = 0 }, true},
		{"zero json limit", func(c *Config) { c.HTTP.JSONLimit = 0 }, true},
		{"negative burst", func(c *Config) { c.RateLimit.Burst = -1 }, true},
		{"empty mongo uri is fine", func(c *Config) { c.MongoURI = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":5000", cfg.Addr())

	cfg.Port = 8081
	assert.Equal(t, ":8081", cfg.Addr())
}
