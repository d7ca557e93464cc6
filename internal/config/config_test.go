package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-assistant/server/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ENVIRONMENT", "prod")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, core.Production, cfg.Env())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sqlite", cfg.SQL.Driver)
	assert.Equal(t, 3, cfg.Retrieval.RAGTopK)
	assert.Equal(t, 10, cfg.Agent.ToolMaxCalls)

	ttl, err := cfg.SessionTTL()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	timeout, err := cfg.RequestTimeout()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("SQL_DRIVER", "postgres")
	t.Setenv("TBA_RATE_PER_SEC", "2.5")
	t.Setenv("REQUEST_TIMEOUT", "bogus")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "postgres", cfg.SQL.Driver)
	assert.Equal(t, 2.5, cfg.TBA.RatePerSec)

	_, err = cfg.RequestTimeout()
	assert.Error(t, err)
}

func TestLoadRequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "unset")
	require.NoError(t, os.Unsetenv("REDIS_URL"))
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
