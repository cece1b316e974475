package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
	}
	for raw, want := range cases {
		got, err := parseLevel(raw)
		if err != nil {
			t.Fatalf("parseLevel(%q) err: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", raw, got, want)
		}
	}

	if _, err := parseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}
