package logger

import (
	"interview_assistant_backend/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN", "debug"))
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("", "debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("", "release"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud", "release"))
}

func TestNewCoreWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	core := NewCore(config.LogConfig{File: path, MaxSizeMB: 1}, zapcore.InfoLevel)

	l := zap.New(core)
	l.Debug("hidden")
	l.Info("attempt saved", zap.Uint("user_id", 3))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"attempt saved"`)
	assert.Contains(t, string(data), `"user_id":3`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewCoreNoOutputs(t *testing.T) {
	core := NewCore(config.LogConfig{}, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}
