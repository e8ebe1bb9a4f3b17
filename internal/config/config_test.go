package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider().Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.Provider().FallbackModel)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Orchestrator.HistoryTurns)
	assert.Equal(t, "main", cfg.Git.Branch)
	assert.Equal(t, 6000, cfg.Analysis.MaxOutput)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromPath_CreatesDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".pmcortex", "config.yaml")

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	_, err = os.Stat(configPath)
	require.NoError(t, err, "config file was not created")

	assert.Equal(t, "gemini", cfg.LLM.DefaultProvider)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.Timeout)

	again, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Analysis, again.Analysis)
	assert.Equal(t, cfg.Discovery, again.Discovery)
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.LLM.DefaultProvider = "ollama"
	cfg.Discovery.Concurrency = 4
	cfg.Scheduler.Enabled = true
	require.NoError(t, cfg.SaveToPath(configPath))

	loaded, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", loaded.LLM.DefaultProvider)
	assert.Equal(t, 4, loaded.Discovery.Concurrency)
	assert.True(t, loaded.Scheduler.Enabled)
	assert.Equal(t, "http://127.0.0.1:11434", loaded.Provider().Endpoint)
}

func TestLoadFromPath_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Default().SaveToPath(configPath))

	t.Setenv("PMCORTEX_SERVER_PORT", "9123")
	t.Setenv("PMCORTEX_LOGGING_LEVEL", "debug")

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromPath_FillsZeroValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Orchestrator.HistoryTurns = 0
	cfg.Discovery.Concurrency = 0
	cfg.Git.Branch = ""
	require.NoError(t, cfg.SaveToPath(configPath))

	loaded, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, 20, loaded.Orchestrator.HistoryTurns)
	assert.Equal(t, 2, loaded.Discovery.Concurrency)
	assert.Equal(t, "main", loaded.Git.Branch)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid default", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }, "data.dir"},
		{"empty provider", func(c *Config) { c.LLM.DefaultProvider = "" }, "llm.default_provider"},
		{"unknown provider", func(c *Config) { c.LLM.DefaultProvider = "nope" }, "not found in providers map"},
		{"zero llm timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"empty codex path", func(c *Config) { c.Analysis.CodexPath = "" }, "analysis.codex_path"},
		{"zero analysis timeout", func(c *Config) { c.Analysis.Timeout = 0 }, "analysis.timeout"},
		{"empty repo base", func(c *Config) { c.Git.RepoBasePath = "" }, "git.repo_base_path"},
		{"zero classify timeout", func(c *Config) { c.Router.ClassifyTimeout = 0 }, "router.classify_timeout"},
		{"zero discovery timeout", func(c *Config) { c.Discovery.Timeout = 0 }, "discovery.timeout"},
		{"too many workers", func(c *Config) { c.Discovery.Concurrency = 64 }, "discovery.concurrency"},
		{"scheduler without spec", func(c *Config) { c.Scheduler.Enabled = true; c.Scheduler.SyncSpec = "" }, "scheduler.sync_spec"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "repos"), expandPath("~/repos"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8000}
	assert.Equal(t, "127.0.0.1:8000", s.Addr())
}
