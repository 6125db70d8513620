package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", c.OpenAIAPIKey)
	assert.Equal(t, "gpt-4.1", c.OpenAIModel)
	assert.Equal(t, "https://pokeapi.co/api/v2", c.PokeAPIBaseURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.False(t, c.WebScrapingEnabled)
	assert.Equal(t, 5, c.MaxSubagents)
	assert.Equal(t, 2, c.MaxRefinementCycles)
	assert.Equal(t, "sqlite3", c.LedgerDriver)
	assert.Equal(t, 2112, c.MetricsPort)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("MAX_SUBAGENTS", "3")
	t.Setenv("WEB_SCRAPING_ENABLED", "true")
	t.Setenv("REQUEST_TIMEOUT", "30s")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", c.OpenAIModel)
	assert.Equal(t, 3, c.MaxSubagents)
	assert.True(t, c.WebScrapingEnabled)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openai_api_key: file-key
openai_model: gpt-4.1-mini
max_refinement_cycles: 1
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-key", c.OpenAIAPIKey)
	assert.Equal(t, "gpt-4.1-mini", c.OpenAIModel)
	assert.Equal(t, 1, c.MaxRefinementCycles)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadBadConfigFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateBounds(t *testing.T) {
	c := &Config{OpenAIAPIKey: "k", MaxSubagents: 0, MaxRefinementCycles: 0}
	assert.Error(t, c.Validate())

	c = &Config{OpenAIAPIKey: "k", MaxSubagents: 1, MaxRefinementCycles: -1}
	assert.Error(t, c.Validate())

	c = &Config{OpenAIAPIKey: "k", MaxSubagents: 1, MaxRefinementCycles: 0}
	assert.NoError(t, c.Validate())
}
