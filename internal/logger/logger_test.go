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

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "bogus", Format: "json", Service: "aether-insights"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestWithRun(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)
	l.WithRun("run-1", "ds-1", "profiling").Info("started")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "ds-1", fields["dataset_id"])
	assert.Equal(t, "profiling", fields["run_kind"])
}

func TestLogStage(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)

	l.LogStage("profile", 12.5, nil)
	l.LogStage("insights", 3, errors.New("boom"), zap.String("dataset_id", "ds-1"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "profile", entries[0].ContextMap()["stage"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "ds-1", entries[1].ContextMap()["dataset_id"])
}

func TestLogServiceCall(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.LogServiceCall("redis", "set_status", 1, nil)
	assert.Zero(t, logs.Len(), "successful calls log at debug")

	l.LogServiceCall("redis", "set_status", 1, errors.New("connection refused"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Service call failed", logs.All()[0].Message)
}

func TestLogHTTPRequest(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.LogHTTPRequest("GET", "/api/v1/datasets/1", "curl", "127.0.0.1", 200, 4)
	l.LogHTTPRequest("POST", "/api/v1/datasets", "curl", "127.0.0.1", 503, 4)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 503, entries[1].ContextMap()["status_code"])
}
