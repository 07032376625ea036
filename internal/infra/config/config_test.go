package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  baseUrl: "http://prediction:9000"
  endpoints:
    predict: "/predict"
dashboard:
  pixelCeiling: 500000
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("VALKEY_ENABLED", "true")
	t.Setenv("VALKEY_ADDR", "valkey:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://prediction:9000", cfg.Backend.BaseURL)
	require.Equal(t, "/predict", cfg.Backend.Endpoints.Predict)
	require.Equal(t, "/current-threshold", cfg.Backend.Endpoints.CurrentThreshold)
	require.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	require.Equal(t, 500000, cfg.Dashboard.PixelCeiling)
	require.True(t, cfg.Storage.Valkey.Enabled)
	require.Equal(t, "valkey:6379", cfg.Storage.Valkey.Addr)
}

func TestAPIURLOverridesBaseURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "{}"))
	t.Setenv("API_URL", "https://thermostraw.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://thermostraw.example.com", cfg.Backend.BaseURL)
}

func TestValidateRejectsRelativeEndpoint(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend.Endpoints.VerifyPIN = "verify-pin"

	require.ErrorContains(t, cfg.Validate(), "verifyPin")
}

func TestValidateRejectsShortSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.Secret = "short"

	require.Error(t, cfg.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
