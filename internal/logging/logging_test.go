package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("stored", slog.String("file", "a.txt"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stored", rec["msg"])
	assert.Equal(t, "a.txt", rec["file"])
}

func TestConsoleFormatWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "console", "debug")
	require.NoError(t, err)

	logger.Debug("chunk written", slog.Duration("latency", 1500*time.Nanosecond))
	out := buf.String()
	assert.Contains(t, out, "chunk written")
	assert.Contains(t, out, "latency=")
	assert.Contains(t, out, "2µs")
	assert.NotContains(t, out, "\x1b[", "no colour codes when not a terminal")
}

func TestAutoFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "auto", "warn")
	require.NoError(t, err)
	logger.Warn("careful")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestRejectsUnknownSettings(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, "json", "loud")
	assert.Error(t, err)
}
