package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNew_WritesJSONWithRequestID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(&Config{Level: "info", ServiceName: "campus-test", OutputPath: path})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-42")
	log.WithContext(ctx).Info("registration accepted", zap.String("event_id", "ev-1"))
	log.Debug("dropped at info level")
	require.NoError(t, log.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(raw, &line))
	assert.Equal(t, "registration accepted", line["message"])
	assert.Equal(t, "campus-test", line["service"])
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "ev-1", line["event_id"])
}

func TestWithContext_NoRequestID(t *testing.T) {
	log := Nop()
	assert.Same(t, log, log.WithContext(context.Background()))
}
