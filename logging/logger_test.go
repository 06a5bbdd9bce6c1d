package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	l := New(Config{Level: "warn", Format: "json", Output: &buf})
	l.Info("dropped", "k", "v")
	l.Warn("agent.run.failed", "agent", "Curator", "error", errors.New("boom"), "duration", time.Second)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "agent.run.failed", entry["message"])
	assert.Equal(t, "Curator", entry["agent"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNew_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer

	l := New(Config{Level: "bogus", Output: &buf})
	l.Debug("hidden")
	l.Info("shown", "odd")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer

	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	l.Info("workflow.registered", "workflow", "recipe")

	assert.Contains(t, buf.String(), "workflow=recipe")
}

func TestLogModelCall(t *testing.T) {
	var buf bytes.Buffer

	l := New(Config{Level: "info", Output: &buf})
	LogModelCall(l, "gemini-2.5-flash-lite", 42, time.Millisecond, nil)
	LogModelCall(l, "gemini-2.5-flash-lite", 0, time.Millisecond, errors.New("quota"))

	assert.Contains(t, buf.String(), "model.call.completed")
	assert.Contains(t, buf.String(), "model.call.failed")
	assert.Contains(t, buf.String(), `"token_count":42`)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() { l.Error("x", "k", 1) })
}
