package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltfox-backend/config"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "voltfox.log")

	log, err := New("production", config.LoggingConfig{Level: "info", File: logPath, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Named(NameNotification).Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"notification"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("development", config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
