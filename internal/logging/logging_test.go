package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	start := testTime

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"relative", "ladderlogs", filepath.Join("ladderlogs", "ladderreach.20260212_213836.log")},
		{"dot prefix", "./ladderlogs", filepath.Join(".", "ladderlogs", "ladderreach.20260212_213836.log")},
		{"absolute", filepath.Join("/var", "log", "ladderreach"), filepath.Join("/var", "log", "ladderreach", "ladderreach.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "ladderreach", start))
		})
	}
}

func TestSessionAttrs(t *testing.T) {
	session, truck := "", ""
	ids := func() []slog.Attr {
		return sessionAttrs(func() string { return session }, func() string { return truck })
	}

	assert.Empty(t, ids())
	assert.Empty(t, sessionAttrs(nil, nil))

	session = "abc"
	assert.Equal(t, []slog.Attr{slog.String("session", "abc")}, ids())

	truck = "Aerial_Ladder"
	assert.Equal(t, []slog.Attr{slog.String("session", "abc"), slog.String("truck", "Aerial_Ladder")}, ids())
}
