package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func jsonLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{Level: level, Output: buf})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, WARN)

	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below WARN, got %q", buf.String())
	}

	log.Warnf("disk at %d%%", 91)
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["message"] != "disk at 91%" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, ERROR)
	log.Infof("hidden")
	log.SetLevel(DEBUG)
	log.Debugf("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output after SetLevel: %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := jsonLogger(&buf, INFO).With("ingest")
	log.Infof("hello")

	if !strings.Contains(buf.String(), `"component":"ingest"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Colorize: true, Output: &buf})
	log.Errorf("boom %s", "now")

	if !strings.Contains(buf.String(), "boom now") {
		t.Errorf("expected message in console output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"WARN", WARN},
		{"warning", WARN},
		{" error ", ERROR},
		{"fatal", FATAL},
		{"", INFO},
		{"chatty", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}
