package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogger_NopBeforeInitialize(t *testing.T) {
	log.Store(nil)

	assert.NotNil(t, Logger())
	assert.NotPanics(t, func() { Named("flow").Info("ignored") })
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { log.Store(nil) })

	require.Error(t, Initialize("loud"))

	require.NoError(t, Initialize("warn"))
	l := Logger()
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
