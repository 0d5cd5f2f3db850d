package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			require.Equal(t, tc.want, LevelFromString(tc.input))
		})
	}
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "attempt", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "attempt=2")
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, LevelDebug).With("session_id", "s1")
	logger.Error("boom")
	assert.Contains(t, buf.String(), "session_id=s1")
}

func TestNullLogger(t *testing.T) {
	logger := Null()
	logger.Info("nothing")
	assert.Equal(t, logger, logger.With("k", "v"))
}

func TestFromSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := FromSlog(slog.New(slog.NewJSONHandler(&buf, nil)))
	logger.With("path", "a.go").Info("restored")
	assert.Contains(t, buf.String(), `"msg":"restored"`)
	assert.Contains(t, buf.String(), `"path":"a.go"`)
}
