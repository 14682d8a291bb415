package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}

func TestNew(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		l, err := New(Config{Env: env, Level: "warn", ServiceName: "catalog", Version: "test"})
		require.NoError(t, err, env)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel), env)
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel), env)
	}
}

func TestContextRoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core))

	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.Len())

	// no logger stored: still safe to use
	FromContext(context.Background()).Info("dropped")
	OrNop(nil).Info("dropped")
	assert.Equal(t, 1, logs.Len())
}
