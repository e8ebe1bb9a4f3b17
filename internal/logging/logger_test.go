package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelWarn, Format: "json", Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message %d", 1)
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message 1")
	assert.Contains(t, out, "error message")
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	log := base.WithComponent("discovery").WithField("project_id", "p1")
	log.Info("job started")

	out := buf.String()
	assert.Contains(t, out, `"component":"discovery"`)
	assert.Contains(t, out, `"project_id":"p1"`)
	assert.Equal(t, "discovery", log.Component())
	assert.Empty(t, base.Component())
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, Output: &buf})

	logger.Info("plain message")

	assert.True(t, strings.Contains(buf.String(), "plain message"))
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pmcortex.log")
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, Format: "json", Output: &buf, FilePath: path})

	logger.Info("persisted")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")
}

func TestLogger_WithFieldsAndResponse(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: LevelInfo, Format: "json", Output: &buf})

	base.WithFields(map[string]interface{}{"run_id": "r1", "project_id": "p1"}).Info("run stored")
	base.Response("GET", "/api/v1/projects", 200, 15*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"r1"`)
	assert.Contains(t, out, `"project_id":"p1"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, "GET /api/v1/projects")
}

func TestSetLevel(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	var buf bytes.Buffer
	SetGlobal(New(&Config{Level: LevelWarn, Format: "json", Output: &buf}))

	Debug("hidden")
	SetLevel(LevelDebug)
	Debug("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
