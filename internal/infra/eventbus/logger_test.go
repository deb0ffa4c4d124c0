package eventbus

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_WritesFieldsAndLevels(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewZapLoggerAdapter(zap.New(core)).With(watermill.LogFields{"topic": "click-events"})

	// Act
	adapter.Info("subscribed", watermill.LogFields{"consumer": "c1"})
	adapter.Error("publish failed", errors.New("boom"), nil)
	adapter.Trace("tick", nil)

	// Assert
	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "click-events", entries[0].ContextMap()["topic"])
	assert.Equal(t, "c1", entries[0].ContextMap()["consumer"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}
