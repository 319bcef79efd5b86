package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevels(t *testing.T) {
	for _, tc := range []struct {
		name          string
		withContext   bool
		expectedLevel zapcore.Level
	}{
		{name: "Info", expectedLevel: zapcore.InfoLevel},
		{name: "Debug", expectedLevel: zapcore.DebugLevel},
		{name: "Warn", expectedLevel: zapcore.WarnLevel},
		{name: "Error", expectedLevel: zapcore.ErrorLevel},
		{name: "Info", withContext: true, expectedLevel: zapcore.InfoLevel},
		{name: "Debug", withContext: true, expectedLevel: zapcore.DebugLevel},
		{name: "Warn", withContext: true, expectedLevel: zapcore.WarnLevel},
		{name: "Error", withContext: true, expectedLevel: zapcore.ErrorLevel},
	} {
		observerLogger, logs := observer.New(zap.DebugLevel)
		dut := ZapLogger{zap.New(observerLogger)}
		const testMessage = "ABC"
		ctx := context.Background()

		switch {
		case tc.name == "Info" && tc.withContext:
			dut.InfoWithContext(ctx, testMessage)
		case tc.name == "Info":
			dut.Info(testMessage)
		case tc.name == "Debug" && tc.withContext:
			dut.DebugWithContext(ctx, testMessage)
		case tc.name == "Debug":
			dut.Debug(testMessage)
		case tc.name == "Warn" && tc.withContext:
			dut.WarnWithContext(ctx, testMessage)
		case tc.name == "Warn":
			dut.Warn(testMessage)
		case tc.name == "Error" && tc.withContext:
			dut.ErrorWithContext(ctx, testMessage)
		case tc.name == "Error":
			dut.Error(testMessage)
		}
		require.Equal(t, 1, logs.Len())

		actual := logs.All()[0]
		require.Equal(t, testMessage, actual.Message)
		require.Equal(t, map[string]interface{}{}, actual.ContextMap())
		require.Equal(t, tc.expectedLevel, actual.Level)
	}
}

func TestWith(t *testing.T) {
	l, logs := NewObserverLogger("debug")

	child := l.With(zap.String("resource", "School"))
	child.Info("cascade")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, map[string]interface{}{"resource": "School"}, logs.All()[0].ContextMap())
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger("json", "verbose")
	require.EqualError(t, err, "unknown log level: verbose")

	l, err := NewLogger("text", "none")
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = NewLogger("json", "info")
	require.NoError(t, err)
	require.NotNil(t, l)
}
