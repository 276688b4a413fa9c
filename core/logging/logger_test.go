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
	"go.uber.org/zap"
)

func TestNewConsoleLevels(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Level: "warn", Console: &console})
	require.NoError(t, err)
	logger.Info("quiet")
	logger.Warn("script modified", zap.String("script", "hello.py"))
	require.NoError(t, logger.Sync())

	output := console.String()
	assert.NotContains(t, output, "quiet")
	assert.Contains(t, output, "WARN")
	assert.Contains(t, output, "script modified")
	assert.Contains(t, output, `"script": "hello.py"`)
}

func TestShowTraceEnablesDebug(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Level: "error", ShowTrace: true, Console: &console})
	require.NoError(t, err)
	logger.Debug("trace line")
	assert.Contains(t, console.String(), "trace line")
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestDailyFileCore(t *testing.T) {
	logsDir := t.TempDir()
	fixed := time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)
	var console bytes.Buffer
	logger, err := New(Config{Level: "error", LogsDir: logsDir, Console: &console, Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	logger.Debug("compiled", zap.Int("entries", 2))
	logger.Info("installed")

	raw, err := os.ReadFile(filepath.Join(logsDir, "2026-04-02.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	fields := strings.Split(lines[0], "\t")
	require.GreaterOrEqual(t, len(fields), 3)
	assert.Equal(t, "DEBUG", fields[1])
	assert.Equal(t, "compiled", fields[2])
	assert.Empty(t, console.String())
}

func TestMissingLogsDirSkipsFileCore(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "absent")
	logger, err := New(Config{LogsDir: logsDir, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	logger.Info("hello")
	_, statErr := os.Stat(logsDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	logger := zap.NewExample()
	assert.Same(t, logger, OrNop(logger))
}
