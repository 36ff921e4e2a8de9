package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewZerolog_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, "warn")
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Warn().Msg("shown")
	entry := decode(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewZerolog_DefaultsToInfo(t *testing.T) {
	for _, level := range []string{"", "verbose"} {
		var buf bytes.Buffer
		l := NewZerolog(&buf, level)
		l.Debug().Msg("hidden")
		assert.Empty(t, buf.String(), level)
		l.Info().Msg("shown")
		assert.NotEmpty(t, buf.String(), level)
	}
}

func TestDispatcherLogger(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("event", "command", "move", "args", 1) }},
		{"info", func(l *DispatcherLogger) { l.Info("event", "command", "move", "args", 1) }},
		{"error", func(l *DispatcherLogger) { l.Error("event", "command", "move", "args", 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(NewZerolog(&buf, "debug")))

			entry := decode(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "event", entry["message"])
			assert.Equal(t, "move", entry["command"])
			assert.Equal(t, float64(1), entry["args"])
		})
	}
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "dropped", "odd"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}
