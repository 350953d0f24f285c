package logger

import (
	"coursehub_backend/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		mode  string
		want  zapcore.Level
	}{
		{name: "explicit level wins", level: "warn", mode: "debug", want: zapcore.WarnLevel},
		{name: "debug mode", mode: "debug", want: zapcore.DebugLevel},
		{name: "release mode", mode: "release", want: zapcore.InfoLevel},
		{name: "unknown level falls back", level: "loud", mode: "release", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level, tt.mode))
		})
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(config.LogConfig{Level: "warn", File: path, MaxSizeMB: 1}, "debug")

	log.Info("dropped")
	log.Warn("kept", zap.Int("userID", 7))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"service":"coursehub"`)
	assert.Contains(t, out, `"userID":7`)
	assert.NotContains(t, out, "dropped")
}
