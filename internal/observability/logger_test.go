// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/linkmcp/internal/config"
)

// lockedBuffer satisfies zapcore.WriteSyncer for capturing console output.
type lockedBuffer struct {
	bytes.Buffer
}

func (b *lockedBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console logger with colors", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var buf lockedBuffer
		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}, zapcore.AddSync(&buf))

		GetLogger().Info("This is a test message.")
		Sync()

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "This is a test message.")
		assert.Contains(t, out, colorGreen)
		assert.Contains(t, out, "TestService.")
	})

	t.Run("json logger respects level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var buf lockedBuffer
		Initialize(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "svc"}, zapcore.AddSync(&buf))

		logger := GetLogger()
		logger.Info("hidden")
		logger.Warn("visible")
		Sync()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "visible", entry["msg"])
		assert.Equal(t, "svc", entry["logger"])
	})

	t.Run("initialization happens once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var first, second lockedBuffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, zapcore.AddSync(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, zapcore.AddSync(&second))

		GetLogger().Info("hello")
		assert.Contains(t, first.String(), "hello")
		assert.Empty(t, second.String())
	})
}

func TestFileLogging(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "linkmcp.log")
	var console lockedBuffer
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "filetest",
		LogFile:     logFile,
		MaxSize:     1,
	}, zapcore.AddSync(&console))

	GetLogger().Info("persisted entry")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"persisted entry"`)
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger(config.LoggerConfig{Level: "info"})
	assert.Error(t, err, "service name is required")

	logger, err := NewLogger(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "di"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	assert.NotNil(t, GetLogger())
}
