package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New("restobar", "debug")
	l.SetOutput(&buf)

	l.Info("req-1", "order_submit", "order created")
	l.Error("req-2", "payment_confirm", "settle failed", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first.Level)
	assert.Equal(t, "restobar", first.Service)
	assert.Equal(t, "order_submit", first.Action)
	assert.Equal(t, "req-1", first.RequestID)
	assert.Nil(t, first.Error)

	var second LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	require.NotNil(t, second.Error)
	assert.Equal(t, "boom", second.Error.Msg)
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("restobar", "warn")
	l.SetOutput(&buf)

	l.Debug("", "a", "hidden")
	l.Info("", "b", "hidden")
	l.Warn("", "c", "shown")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `"action":"c"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"WARNING", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}
