package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core))

	log.Debug("hidden", nil)
	log.Info("asked", map[string]interface{}{"endpoint": "http://localhost:8000/api/ask", "attempt": 1})
	log.WithError(errors.New("boom")).Error("failed", map[string]interface{}{"cause": errors.New("dial tcp")})

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "asked", entries[0].Message)
	assert.Equal(t, "http://localhost:8000/api/ask", entries[0].ContextMap()["endpoint"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["attempt"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "dial tcp", entries[1].ContextMap()["cause"])
}

func TestZapWrapper_WithIsWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).With(map[string]interface{}{"worker": "ask-question"})

	log.Warn("retrying", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ask-question", logs.All()[0].ContextMap()["worker"])
}

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "json").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "console").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("unknown", "json").Core().Enabled(zapcore.InfoLevel))
}

func TestNoOpLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNoOpLogger().WithFields(map[string]interface{}{"k": "v"}).Info("ignored", nil)
	})
}
