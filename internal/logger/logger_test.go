package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	// Reinitialize logger with test output
	logger = nil
	InitLogger(level)

	fn()

	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:  "info log",
			level: "info",
			logFn: func() {
				Info("catalog refreshed")
			},
			contains: []string{"catalog refreshed"},
		},
		{
			name:  "debug log with debug level",
			level: "debug",
			logFn: func() {
				Debug("freshness check", Fields{"source": "formula"})
			},
			contains: []string{"freshness check", "level=DEBUG", "source=formula"},
		},
		{
			name:  "debug log with info level",
			level: "info",
			logFn: func() {
				Debug("hidden message")
			},
			excludes: []string{"hidden message"},
		},
		{
			name:  "error log",
			level: "info",
			logFn: func() {
				Errorf("download failed after %d attempts", 3)
			},
			contains: []string{"download failed after 3 attempts", "level=ERROR"},
		},
		{
			name:  "warn log",
			level: "info",
			logFn: func() {
				Warn("stale artifact", Fields{"path": "/tmp/formula.json"})
			},
			contains: []string{"stale artifact", "level=WARN"},
		},
		{
			name:  "unknown level falls back to info",
			level: "loud",
			logFn: func() {
				Infof("still %s", "visible")
			},
			contains: []string{"still visible"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, tt.logFn)
			for _, want := range tt.contains {
				assert.True(t, strings.Contains(output, want), "output %q should contain %q", output, want)
			}
			for _, unwanted := range tt.excludes {
				assert.False(t, strings.Contains(output, unwanted), "output %q should not contain %q", output, unwanted)
			}
		})
	}
}
