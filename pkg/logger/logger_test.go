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

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantLevel zapcore.Level
	}{
		{
			name: "development config",
			config: Config{
				Level:       "debug",
				Environment: "development",
				ServiceName: "test-service",
			},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name: "production config",
			config: Config{
				Level:       "info",
				Environment: "production",
				ServiceName: "prod-service",
			},
			wantLevel: zapcore.InfoLevel,
		},
		{
			name: "invalid level defaults to info",
			config: Config{
				Level:       "not-a-level",
				Environment: "development",
				ServiceName: "test-service",
			},
			wantLevel: zapcore.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.True(t, l.zap.Core().Enabled(tt.wantLevel))
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	l := &Logger{zap: zap.New(core)}

	l.Info("info message", zap.String("key", "value"))
	require.Equal(t, 1, observed.Len())
	entry := observed.TakeAll()[0]
	assert.Equal(t, "info message", entry.Message)
	assert.Equal(t, "value", entry.ContextMap()["key"])

	l.Error("error message", errors.New("boom"))
	require.Equal(t, 1, observed.Len())
	entry = observed.TakeAll()[0]
	assert.Equal(t, "error message", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["error"])

	// Debug is below the observer's level and must be dropped
	l.Debug("debug message")
	assert.Equal(t, 0, observed.Len())
}

func TestWith(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	l := &Logger{zap: zap.New(core)}

	child := l.With(zap.Int("objectid", 174430))
	child.Info("child message")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, int64(174430), observed.All()[0].ContextMap()["objectid"])
}
