package log

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx(t *testing.T) {
	ctx := context.Background()

	// without an attached logger we get the default
	l := Ctx(ctx)
	require.NotNil(t, l)
	assert.Equal(t, defaultLogger, l)

	custom := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	require.NotEqual(t, defaultLogger, custom)

	l = Ctx(With(ctx, custom))
	require.NotNil(t, l)
	assert.Equal(t, custom, l)
}

func TestSetDefaultLogLevel(t *testing.T) {
	defer SetDefaultLogLevel(slog.LevelInfo)

	SetDefaultLogLevel(slog.LevelDebug)
	assert.True(t, defaultLogger.Enabled(context.Background(), slog.LevelDebug))

	SetDefaultLogLevel(slog.LevelWarn)
	assert.False(t, defaultLogger.Enabled(context.Background(), slog.LevelInfo))
}
