// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hireflow/autoapply/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// resetGlobalLogger is critical for ensuring test isolation, as the logger
// is a global singleton.
func resetGlobalLogger() {
	once = sync.Once{}
	globalLogger.Store(nil)
}

// newBufferSyncer returns a WriteSyncer backed by an in-memory buffer.
func newBufferSyncer() (*bytes.Buffer, zapcore.WriteSyncer) {
	var buf bytes.Buffer
	return &buf, zapcore.AddSync(&buf)
}

func TestInitialize(t *testing.T) {
	t.Run("console format is colorized", func(t *testing.T) {
		resetGlobalLogger()
		buf, ws := newBufferSyncer()

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "test-service",
			Colors:      config.ColorConfig{Info: "green"},
		}, ws)

		GetLogger().Info("hello from the console core")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "hello from the console core")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
		assert.Contains(t, output, "test-service.")
	})

	t.Run("json format emits structured fields", func(t *testing.T) {
		resetGlobalLogger()
		buf, ws := newBufferSyncer()

		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "test-service",
		}, ws)

		GetLogger().Info("structured", zap.String("session_id", "abc-123"))

		line := strings.TrimSpace(buf.String())
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &payload))
		assert.Equal(t, "structured", payload["msg"])
		assert.Equal(t, "abc-123", payload["session_id"])
		assert.Equal(t, "INFO", payload["level"])
	})

	t.Run("level filtering respects config", func(t *testing.T) {
		resetGlobalLogger()
		buf, ws := newBufferSyncer()

		Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "t"}, ws)

		GetLogger().Info("should be dropped")
		GetLogger().Warn("should be kept")

		output := buf.String()
		assert.NotContains(t, output, "should be dropped")
		assert.Contains(t, output, "should be kept")
	})

	t.Run("file core writes rotated json log", func(t *testing.T) {
		resetGlobalLogger()
		_, ws := newBufferSyncer()

		logFile := filepath.Join(t.TempDir(), "autoapply.log")
		Initialize(config.LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "t",
			LogFile:     logFile,
			MaxSize:     1,
		}, ws)

		GetLogger().Info("to file")
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})
}

func TestGetLoggerFallback(t *testing.T) {
	resetGlobalLogger()
	// Without initialization a usable fallback logger must be returned.
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Debug("fallback is alive") })
}

func TestInitializeIsIdempotent(t *testing.T) {
	resetGlobalLogger()
	buf, ws := newBufferSyncer()

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, ws)
	first := GetLogger()

	// A second call must not replace the configured logger.
	Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "second"}, ws)
	assert.Same(t, first, GetLogger())

	GetLogger().Info("once only")
	assert.Contains(t, buf.String(), `"first"`)
}
