package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracer "sequencer/pkg/errors"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(WithOutputPaths([]string{path}), WithLoggingLevel(DebugLevel))
	require.NoError(t, err)

	log.WithFields(NewField("component", "engine")).Info("committed", NewField("sequence", 42))
	log.Debug("idle")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(data)
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "committed", entry[messageKey])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, float64(42), entry["sequence"])
}

func TestLoggerErrorCarriesStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(WithOutputPaths([]string{path}))
	require.NoError(t, err)

	log.Error(tracer.TracerFromError(errors.New("disk full")))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk full")
	assert.Contains(t, string(data), "log_test.go")
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(WithOutputPaths([]string{path}), WithLoggingLevel(WarnLevel))
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	return lines
}
