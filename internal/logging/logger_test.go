package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "warn", JSON: true})
	require.NoError(t, err)
	assert.False(t, l.z.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.z.Core().Enabled(zapcore.WarnLevel))

	_, err = New(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestWrapFormatsMessages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With("file", "access.log")

	l.Infof("classified as %s", "apache_access")
	l.Warnf("skipped line %d", 7)
	l.Debugf("rule %q matched", "apache_combined")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "classified as apache_access", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "skipped line 7", entries[1].Message)
	assert.Equal(t, "access.log", entries[0].ContextMap()["file"])
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.Errorf("still nothing %d", 1)
	l.Sync()
}
