package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/battlemap/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewCLILogger(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewCLILogger(&buf, false)
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewCLILogger(&buf, true).Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestNewLogger_JSONIsNotSampled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	for range 200 {
		logger.Info("fan-out", zap.String("doc", "d"))
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 200)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "fan-out", entry["msg"])
	assert.Equal(t, "d", entry["doc"])
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_DefaultConfig(t *testing.T) {
	logger, err := NewLogger(config.Default().Logging)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestForDocument(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ForDocument(base, "doc-1", "alice").Info("joined")
	ForDocument(base, "doc-2", "").Info("opened")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"doc": "doc-1", "client": "alice"}, entries[0].ContextMap())
	assert.Equal(t, map[string]interface{}{"doc": "doc-2"}, entries[1].ContextMap())
}
