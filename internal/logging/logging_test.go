package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		debug   bool
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{"default", false, false, zapcore.WarnLevel, zapcore.InfoLevel},
		{"verbose", true, false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", false, true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.verbose, tt.debug)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			core := log.Desugar().Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("expected %s enabled", tt.enabled)
			}
			if core.Enabled(tt.off) {
				t.Errorf("expected %s disabled", tt.off)
			}
		})
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Infow("discarded", "key", "value")
	if log.Desugar().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("nop logger must not enable any level")
	}
}
