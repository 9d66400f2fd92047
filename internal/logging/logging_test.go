package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawlog/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"})

	Component(logger, "httpapi").Info("request served", "status", 200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "request served", rec["msg"])
	assert.Equal(t, "httpapi", rec["component"])
	assert.Equal(t, float64(200), rec["status"])
}

func TestNew_LevelVarChangesAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger, level := NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "text"})

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "msg=visible"))
}

func TestComponent_NilLogger(t *testing.T) {
	logger := Component(nil, "x")
	require.NotNil(t, logger)
	logger.Info("dropped")
}
