// file: config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "APPLICATION_URL", "WEBSOCKET_URL", "SESSION_SECRET", "ENV",
	"SCHEMA_PATH", "QUIET_PERIOD_MS", "ALLOWED_ORIGINS", "STRICT_RELAY",
	"CLOUDWATCH_ENABLED", "CLOUDWATCH_NAMESPACE", "XRAY_ENABLED", "LOG_DIR",
}

// clearEnv blanks every key for the test; t.Setenv restores the old values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.ApplicationURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebsocketURL)
	assert.Equal(t, 400*time.Millisecond, cfg.QuietPeriod)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "Shareform", cfg.CloudWatchNamespace)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.StrictRelay)
	assert.False(t, cfg.Production())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("QUIET_PERIOD_MS", "250")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("STRICT_RELAY", "true")
	t.Setenv("ENV", "production")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "ws://localhost:9090/ws", cfg.WebsocketURL)
	assert.Equal(t, 250*time.Millisecond, cfg.QuietPeriod)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.StrictRelay)
	assert.True(t, cfg.Production())
}

func TestLoad_DotenvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override keys that are already set, even when empty
	require.NoError(t, os.Unsetenv("SCHEMA_PATH"))
	require.NoError(t, os.Unsetenv("XRAY_ENABLED"))
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SCHEMA_PATH=forms.yaml\nXRAY_ENABLED=1\nPORT=1234\n"), 0600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SCHEMA_PATH")
		_ = os.Unsetenv("XRAY_ENABLED")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "forms.yaml", cfg.SchemaPath)
	assert.True(t, cfg.XRayEnabled)
	assert.Equal(t, 7000, cfg.Port, "environment wins over the file")
}

func TestLoad_InvalidValues(t *testing.T) {
	for key, val := range map[string]string{
		"PORT":            "eighty",
		"QUIET_PERIOD_MS": "0",
		"STRICT_RELAY":    "maybe",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
