package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Memory.Enabled)
	assert.Equal(t, "badger", cfg.Memory.Store)
	assert.Equal(t, 0.5, cfg.Memory.MinSimilarity)
	assert.Equal(t, 90*24*time.Hour, cfg.Memory.DecayHalfLife)
	assert.Equal(t, "anthropic", cfg.Generation.Provider)
	assert.Equal(t, 4, cfg.Generation.MaxRounds)
	assert.Equal(t, 0.85, cfg.Generation.QualityThreshold)
	assert.True(t, cfg.CircuitBreaker.Enabled)

	// Critic model defaults to the generation model
	assert.Equal(t, cfg.Generation.Model, cfg.Generation.CriticModel)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
server:
  port: 9090
memory:
  enabled: true
  store: chromem
generation:
  provider: openai
  model: gpt-4o
  critic_model: gpt-4o-mini
  max_rounds: 6
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Memory.Enabled)
	assert.Equal(t, "chromem", cfg.Memory.Store)
	assert.Equal(t, "openai", cfg.Generation.Provider)
	assert.Equal(t, "gpt-4o", cfg.Generation.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.CriticModel)
	assert.Equal(t, 6, cfg.Generation.MaxRounds)

	// Unset values still fall back to defaults
	assert.Equal(t, 0.85, cfg.Generation.QualityThreshold)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic-key")
	t.Setenv("OPENAI_API_KEY", "test-openai-key")
	t.Setenv("APEX_DB_PATH", "/tmp/apex-test-db")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-anthropic-key", cfg.Models["anthropic"].APIKey)
	assert.Equal(t, "test-openai-key", cfg.Models["openai"].APIKey)
	assert.Equal(t, "/tmp/apex-test-db", cfg.Memory.DBPath)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/apex.yaml")
	assert.Error(t, err)
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "localhost", Port: 8080}
	assert.Equal(t, "localhost:8080", s.Addr())

	s = ServerConfig{Port: 9000}
	assert.Equal(t, ":9000", s.Addr())
}
