// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(content), 0o644))
	t.Chdir(dir)
}

func TestLoadAppliesDefaults(t *testing.T) {
	writeConfig(t, `
apis:
  genai:
    base_url: http://localhost:8000
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "triage-manager", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "kb_articles", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 3, cfg.Workflow.MaxRevisions)
	assert.Equal(t, 8, cfg.Workflow.MaxConcurrency)
	assert.Equal(t, 3, cfg.Workflow.TopK)
	assert.InDelta(t, 0.3, cfg.Workflow.MinScore, 0.001)
	assert.InDelta(t, 0.6, cfg.Workflow.MinToneScore, 0.001)
	assert.Equal(t, 120, cfg.Workflow.MinDraftLength)
	assert.Equal(t, 4000, cfg.Workflow.MaxDraftLength)
	assert.Equal(t, 72, cfg.Workflow.DedupeTTLHours)
	assert.Equal(t, "triage.results", cfg.Events.Topic)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesFromFile(t *testing.T) {
	writeConfig(t, `
apis:
  genai:
    base_url: http://genai.internal:9000
workflow:
  max_revisions: 5
  min_score: 0.5
logging:
  level: debug
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://genai.internal:9000", cfg.APIs.GenAI.BaseURL)
	assert.Equal(t, 5, cfg.Workflow.MaxRevisions)
	assert.InDelta(t, 0.5, cfg.Workflow.MinScore, 0.001)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing genai base url", func(t *testing.T) {
		writeConfig(t, `
workflow:
  max_revisions: 3
`)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
	})

	t.Run("min_score out of range", func(t *testing.T) {
		writeConfig(t, `
apis:
  genai:
    base_url: http://localhost:8000
workflow:
  min_score: 1.7
`)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "min_score")
	})

	t.Run("events enabled without brokers", func(t *testing.T) {
		writeConfig(t, `
apis:
  genai:
    base_url: http://localhost:8000
events:
  enabled: true
`)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "brokers")
	})
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{
		Host: "db", Port: 5432, Database: "triage", User: "svc", Password: "pw", SSLMode: "disable",
	}.GetDSN()

	assert.Equal(t, "host=db port=5432 user=svc password=pw dbname=triage sslmode=disable", dsn)
}
