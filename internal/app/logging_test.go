package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"ERROR", LogLevelError},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf, Prefix: "test"})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("output contains suppressed levels: %q", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("output missing enabled levels: %q", out)
	}
}

func TestLoggerKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.Info("control set", "panel", "sound", "control", "volume", "value", 70)

	out := buf.String()
	for _, want := range []string{"control set", "panel=sound", "control=volume", "value=70"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.Info("odd args", "panel", "sound", "orphan")

	out := buf.String()
	if !strings.Contains(out, "panel=sound") || !strings.Contains(out, "orphan") {
		t.Errorf("output %q should render the dangling key", out)
	}
}

func TestLoggerWithFieldAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	derived := logger.WithField("session", "abc123").WithComponent("exchange")
	derived.Info("ready")

	out := buf.String()
	if !strings.Contains(out, "session=abc123") || !strings.Contains(out, "component=exchange") {
		t.Errorf("output %q missing attached fields", out)
	}

	buf.Reset()
	logger.Info("plain")
	if strings.Contains(buf.String(), "session=") {
		t.Errorf("parent logger gained the child's fields: %q", buf.String())
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.WithFields(map[string]any{"a": 1, "b": "two"}).Info("multi")

	out := buf.String()
	if !strings.Contains(out, "a=1") || !strings.Contains(out, "b=two") {
		t.Errorf("output %q missing fields", out)
	}
}

func TestLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelInfo, Output: &buf, Prefix: "prefkit"})

	logger.Info("hello")
	if !strings.Contains(buf.String(), "prefkit: hello") {
		t.Errorf("output %q missing prefix", buf.String())
	}
}

func TestLoggerDisable(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.Disable()
	logger.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote output: %q", buf.String())
	}

	logger.Enable()
	logger.Error("should appear")
	if buf.Len() == 0 {
		t.Error("enabled logger wrote nothing")
	}
}

func TestNullLoggerSilent(t *testing.T) {
	NullLogger.Debug("x")
	NullLogger.Info("x")
	NullLogger.Warn("x")
	NullLogger.Error("x")

	derived := NullLogger.WithComponent("anything")
	derived.Error("still silent")
}

func TestSetLevelAndOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelError, Output: &buf1})

	logger.Info("filtered")
	if buf1.Len() != 0 {
		t.Errorf("info passed an error-level filter: %q", buf1.String())
	}

	logger.SetLevel(LogLevelInfo)
	logger.Info("to buf1")
	if !strings.Contains(buf1.String(), "to buf1") {
		t.Errorf("buf1 = %q, want info line", buf1.String())
	}

	logger.SetOutput(&buf2)
	logger.Info("to buf2")
	if !strings.Contains(buf2.String(), "to buf2") {
		t.Errorf("buf2 = %q, want info line", buf2.String())
	}
}
