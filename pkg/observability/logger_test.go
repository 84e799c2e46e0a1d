package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	return entry
}

func TestLoggerEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(InfoLevel, &buf)

	log.Infof("loaded %d plugins", 3)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "loaded 3 plugins", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(WarnLevel, &buf)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.NotEmpty(t, buf.String())
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(InfoLevel, &buf)

	log.WithField("plugin_id", "echo").
		WithError(errors.New("boom")).
		Error("load failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "echo", entry["plugin_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestWithErrorNilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(InfoLevel, &buf)

	log.WithError(nil).Info("fine")
	entry := decodeLine(t, &buf)
	_, hasError := entry["error"]
	assert.False(t, hasError)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), log)
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithPluginID(ctx, "echo")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "echo", GetPluginID(ctx))

	FromContext(ctx).Info("hello")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "echo", entry["plugin_id"])
}
