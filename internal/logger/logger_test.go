package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level)
	fn()
	return buf.String()
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("sync started") },
			contains: []string{"sync started", "level=INFO"},
		},
		{
			name:     "debug shown at debug level",
			level:    "debug",
			logFn:    func() { Debug("cache hit") },
			contains: []string{"cache hit", "level=DEBUG"},
		},
		{
			name:     "debug suppressed at info level",
			level:    "info",
			logFn:    func() { Debug("cache hit") },
			excludes: []string{"cache hit"},
		},
		{
			name:     "unknown level falls back to info",
			level:    "loud",
			logFn:    func() { Debug("hidden") },
			excludes: []string{"hidden"},
		},
		{
			name:     "fields are rendered",
			level:    "info",
			logFn:    func() { Warn("slow fetch", Fields{"resource": "lakes"}) },
			contains: []string{"slow fetch", "resource=lakes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, out, not)
			}
		})
	}
}

func TestErrorf(t *testing.T) {
	out := captureOutput(t, "error", func() { Errorf("fetch failed after %d tries", 3) })
	assert.Contains(t, out, "fetch failed after 3 tries")
	assert.Contains(t, out, "level=ERROR")
}
