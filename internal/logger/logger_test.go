package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, tt := range []struct {
		json, debug bool
	}{{false, false}, {true, false}, {false, true}, {true, true}} {
		l, err := New(tt.json, tt.debug)
		require.NoError(t, err)
		assert.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
	}
}

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  target  ", Value: "  Alice  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	require.Len(t, fields, 1)
	assert.Equal(t, "target", fields[0].Key)
	assert.Equal(t, "Alice", fields[0].String)
	assert.Empty(t, StringFields())
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bar", entries[0].ContextMap()["foo"])

	assert.NotNil(t, WithFields(nil))
}

func TestNamed(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	Named(zap.New(core), "hub").Info("started")

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "hub", observed.All()[0].ContextMap()[FieldComponent])
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "", TruncateForLog("abc", 0))
	assert.Equal(t, "abc", TruncateForLog("  abc  ", 5))
	assert.Equal(t, "ab...", TruncateForLog("abcdef", 2))
	assert.Equal(t, "🔥🔥...", TruncateForLog("🔥🔥🔥", 2))
}
