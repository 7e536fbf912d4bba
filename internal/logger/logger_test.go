package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		config    Config
		wantLevel zapcore.Level
	}{
		{
			name:      "development config",
			config:    Config{Level: "debug", Development: true, Encoding: "console"},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "production config",
			config:    Config{Level: "warn", Encoding: "json"},
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:      "invalid level falls back to info",
			config:    Config{Level: "loud"},
			wantLevel: zapcore.InfoLevel,
		},
		{
			name:      "empty level falls back to info",
			config:    Config{},
			wantLevel: zapcore.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := New(tt.config)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !l.Core().Enabled(tt.wantLevel) {
				t.Errorf("level %v not enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && l.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level below %v unexpectedly enabled", tt.wantLevel)
			}
		})
	}
}

func TestNew_InvalidEncoding(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Encoding: "xml"}); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("DOCGEN_LOG_LEVEL", "error")
	t.Setenv("DOCGEN_ENV", "production")

	l := Default()
	if l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn enabled with DOCGEN_LOG_LEVEL=error")
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}
