package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "V", cfg.Assistant.Name)
	assert.Equal(t, "http://localhost:8000", cfg.Assistant.Endpoint)
	assert.Equal(t, "/message", cfg.Assistant.Path)
	assert.Equal(t, 60, cfg.Assistant.TimeoutSeconds)
	assert.Equal(t, "response", cfg.Assistant.ResponseField)
	assert.Equal(t, "reply", cfg.Assistant.FallbackField)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, 1500, cfg.Server.DelayMs)
	assert.Equal(t, "sqlite", cfg.Server.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "V", cfg.Assistant.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
assistant:
  name: Varuna
  endpoint: https://assistant.example.com
  timeoutSeconds: 5
  responseField: answer
user:
  name: Ada
  email: ada@example.com
server:
  port: 9100
  bind: lan
  delayMs: 0
  allowedOrigins:
    - http://localhost:3000
logging:
  level: debug
  file: /tmp/vchat.log
telemetry:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Varuna", cfg.Assistant.Name)
	assert.Equal(t, "https://assistant.example.com", cfg.Assistant.Endpoint)
	assert.Equal(t, "/message", cfg.Assistant.Path, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Assistant.TimeoutSeconds)
	assert.Equal(t, "answer", cfg.Assistant.ResponseField)
	assert.Equal(t, "reply", cfg.Assistant.FallbackField)
	assert.Equal(t, "Ada", cfg.User.Name)
	assert.Equal(t, "ada@example.com", cfg.User.Email)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "lan", cfg.Server.Bind)
	assert.Equal(t, 0, cfg.Server.DelayMs)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/vchat.log", cfg.Logging.File)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VCHAT_ENDPOINT", "http://10.0.0.5:8000")
	t.Setenv("VCHAT_SERVER_PORT", "12345")
	t.Setenv("VCHAT_SERVER_DELAY_MS", "10")
	t.Setenv("VCHAT_LOG_LEVEL", "TRACE")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", cfg.Assistant.Endpoint)
	assert.Equal(t, 12345, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.DelayMs)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestLoadExpandsEndpointReference(t *testing.T) {
	t.Setenv("ASSISTANT_HOST", "assistant.internal:8443")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assistant:\n  endpoint: https://${ASSISTANT_HOST}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://assistant.internal:8443", cfg.Assistant.Endpoint)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SET_VAR", "value")

	assert.Equal(t, "a-value-b", expandEnvVars("a-${SET_VAR}-b"))
	assert.Equal(t, "${UNSET_VCHAT_VAR}", expandEnvVars("${UNSET_VCHAT_VAR}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"assistant": map[string]any{
			"name": "V",
		},
	}
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"assistant", "name"})
	assert.True(t, ok)
	assert.Equal(t, "V", val)
}

func TestLoadRawMissingAndEmpty(t *testing.T) {
	raw, err := LoadRaw("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Empty(t, raw)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	raw, err = LoadRaw(path)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Message: "bad"}
	assert.Equal(t, "config: bad", err.Error())
}
