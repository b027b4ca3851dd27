package util

import (
	"strings"
	"testing"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf strings.Builder
	logger := NewLoggerWithWriter(LevelWarn, &buf)
	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("shown warn")
	logger.Errorf("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info lines to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Fatalf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error") {
		t.Fatalf("expected error line, got %q", out)
	}
}

func TestLoggerComponentTag(t *testing.T) {
	var buf strings.Builder
	logger := NewLoggerWithWriter(LevelInfo, &buf).WithComponent("store")
	logger.Infof("connected")
	if !strings.Contains(buf.String(), "[INFO] store: connected") {
		t.Fatalf("expected component tag, got %q", buf.String())
	}
}

func TestDerivedLoggerSharesLevel(t *testing.T) {
	var buf strings.Builder
	logger := NewLoggerWithWriter(LevelInfo, &buf)
	derived := logger.WithComponent("engine")
	logger.SetLevel(LevelError)
	derived.Infof("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected derived logger to honor parent level, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"Warn":    LevelWarn,
		"error":   LevelError,
		"unknown": LevelInfo,
		"":        LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLogLevel(input); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
