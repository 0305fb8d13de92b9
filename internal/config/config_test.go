package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadOpenAIConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeSettings(t, tmpDir, "secrets/openai.yaml", `api_key: "test-api-key-12345"
base_url: "http://localhost:9999/v1"`)

	cfg, err := loadOpenAIConfig(filepath.Join(tmpDir, "secrets", "openai.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "test-api-key-12345", cfg.APIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.BaseURL)
}

func TestLoadOpenAIConfig_FileNotFound(t *testing.T) {
	_, err := loadOpenAIConfig("/nonexistent/path/openai.yaml")
	assert.Error(t, err)
}

func TestLoadAssistantConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadAssistantConfig(filepath.Join(t.TempDir(), "assistant.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 200*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RateLimitBackoff)
	assert.Equal(t, "Done", cfg.FallbackReply)
}

func TestLoadAssistantConfig_ParsesDurations(t *testing.T) {
	tmpDir := t.TempDir()
	writeSettings(t, tmpDir, "assistant.yaml", `model: gpt-4o
poll_interval: 500ms
timeout: 1m
rate_limit_backoff: 4
fallback_reply: "All set"`)

	cfg, err := loadAssistantConfig(filepath.Join(tmpDir, "assistant.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, 4, cfg.RateLimitBackoff)
	assert.Equal(t, "All set", cfg.FallbackReply)
	// Unset keys keep their defaults
	assert.Equal(t, DefaultName, cfg.Name)
}

func TestLoadAssistantConfig_RejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	writeSettings(t, tmpDir, "assistant.yaml", `poll_interval: 0s`)

	_, err := loadAssistantConfig(filepath.Join(tmpDir, "assistant.yaml"))
	assert.Error(t, err)
}

func TestLoad_WithEnvVars(t *testing.T) {
	tmpDir := t.TempDir()
	writeSettings(t, tmpDir, "secrets/openai.yaml", `api_key: "env-test-key"`)

	t.Setenv("SETTINGS_DIR", tmpDir)
	t.Setenv("DB_PATH", "/custom/db/path.db")
	t.Setenv("PORT", "9090")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("RUN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/custom/db/path.db", cfg.DBPath)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "env-test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.Assistant.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Assistant.Timeout)
}

func TestLoad_DefaultsToInMemoryDiagram(t *testing.T) {
	t.Setenv("SETTINGS_DIR", t.TempDir())
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	// The secrets file is missing, but the rest of the config is still returned
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ":memory:", cfg.DBPath)
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	t.Setenv("SETTINGS_DIR", t.TempDir())
	t.Setenv("POLL_INTERVAL", "often")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
