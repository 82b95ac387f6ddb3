package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputFor(t *testing.T) {
	if outputFor("stderr") == outputFor("stdout") {
		t.Error("stderr and stdout resolve to the same writer")
	}
	if outputFor("") != outputFor("stdout") {
		t.Error("empty output is not stdout")
	}
	if New(config.LoggingConfig{Output: "discard"}, "dev") == nil {
		t.Error("New() returned nil for discard output")
	}
}

func TestLogger_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.0", &buf)
	logger.Info("endpoint registered", "endpoint", "pressure-001")

	entry := decode(t, &buf)
	want := map[string]any{
		"service":  ServiceName,
		"version":  "1.2.0",
		"msg":      "endpoint registered",
		"endpoint": "pressure-001",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["source"]; ok {
		t.Error("source attached at info level")
	}
}

func TestLogger_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, "dev", &buf).Debug("sampled")

	if _, ok := decode(t, &buf)["source"]; !ok {
		t.Error("source missing at debug level")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "test", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn entry missing")
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Format: "json"}, "test", &buf)
	logger.Info("credentials loaded",
		"psk_secret", "00ff00ff",
		slog.Group("influxdb", "Token", "tok-123"),
		"psk_identity", "pressure-001",
	)

	out := buf.String()
	for _, secret := range []string{"00ff00ff", "tok-123"} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaks %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "pressure-001") {
		t.Errorf("non-secret attribute dropped: %s", out)
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(config.LoggingConfig{Format: "json"}, "test", &buf)
	child := parent.Component("mqttengine")
	if child == parent {
		t.Fatal("Component() returned the parent")
	}
	child.Info("started")

	if got := decode(t, &buf)["component"]; got != "mqttengine" {
		t.Errorf("component = %v", got)
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
