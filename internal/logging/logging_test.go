package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})
	logger.Debug("hidden")
	logger.Info("synthesized", zap.String("stack", "Platform"))
	_ = logger.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "synthesized")
	assert.Contains(t, out, `"stack": "Platform"`)

	buf.Reset()
	verbose := New(Options{Output: &buf, Verbose: true})
	verbose.Debug("running app")
	_ = verbose.Sync()
	assert.Contains(t, buf.String(), "DEBUG")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, JSON: true})
	logger.Warn("deploy skipped", zap.Int("changes", 0))
	_ = logger.Sync()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "deploy skipped", entry["msg"])
	assert.Equal(t, float64(0), entry["changes"])
	assert.Contains(t, entry, "ts")
}
