package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got, s)
	}

	_, ok := ParseLogLevel("verbose")
	require.False(t, ok)
}

// TestContextCarriesLogger checks that named loggers and fields survive the context round trip.
func TestContextCarriesLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), NewWithWriter(&buf, zapcore.DebugLevel))
	ctx = WithName(ctx, "emby-beta-updater")
	ctx = WithKV(ctx, "run_id", "abc")

	DebugKV(ctx, "probing", "package", "emby-server")

	out := buf.String()
	require.Contains(t, out, "emby-beta-updater")
	require.Contains(t, out, "probing")
	require.Contains(t, out, `"run_id": "abc"`)
	require.Contains(t, out, `"package": "emby-server"`)
}

// TestFromContextFallsBackToGlobal ensures a bare context still yields a usable logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
	//nolint:staticcheck // A nil context must not panic.
	require.Same(t, Logger(), FromContext(nil))
}
