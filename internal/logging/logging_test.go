package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.level, err)
			}
			core := logger.Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("expected %s to be enabled", tt.enabled)
			}
			if core.Enabled(tt.muted) {
				t.Errorf("expected %s to be muted", tt.muted)
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
