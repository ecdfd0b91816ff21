package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelSilent, "SILENT"},
	}

	for _, tt := range tests {
		if tt.level.String() != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, tt.level.String())
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", LevelDebug},
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"WARNING", LevelWarn},
		{"ERROR", LevelError},
		{"SILENT", LevelSilent},
		{"OFF", LevelSilent},
		{"", LevelInfo},
		{"invalid", LevelInfo}, // default
	}

	for _, tt := range tests {
		result := ParseLevel(tt.input)
		if result != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON || ParseFormat("JSON") != FormatJSON {
		t.Error("json format not recognized")
	}
	if ParseFormat("text") != FormatText || ParseFormat("") != FormatText {
		t.Error("text should be the default format")
	}
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithLevel(LevelDebug),
		WithFormat(FormatText),
	)

	logger.Info("session established", Fields{"peer": "bob", "mode": "qkd"})

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("missing level in output: %q", out)
	}
	if !strings.Contains(out, "session established") {
		t.Errorf("missing message in output: %q", out)
	}
	if !strings.Contains(out, "mode=qkd") || !strings.Contains(out, "peer=bob") {
		t.Errorf("missing fields in output: %q", out)
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(
		WithOutput(&buf),
		WithFormat(FormatJSON),
		WithName("test"),
	)

	logger.Warn("provider fallback", Fields{"algorithm": "kyber"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["msg"] != "provider fallback" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["logger"] != "test" {
		t.Errorf("logger = %v, want test", entry["logger"])
	}
	if entry["algorithm"] != "kyber" {
		t.Errorf("algorithm = %v, want kyber", entry["algorithm"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("below-threshold output: %q", buf.String())
	}

	logger.Warn("visible")
	if buf.Len() == 0 {
		t.Error("warn output suppressed")
	}
}

func TestLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelSilent))

	logger.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("silent logger wrote: %q", buf.String())
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithName("root"))
	child := logger.Named("session")

	child.Info("hello")
	if !strings.Contains(buf.String(), "[root.session]") {
		t.Errorf("missing nested name: %q", buf.String())
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf)).With(Fields{"conn": "conn-1"})

	logger.Info("registered")
	if !strings.Contains(buf.String(), "conn=conn-1") {
		t.Errorf("missing default field: %q", buf.String())
	}
}
