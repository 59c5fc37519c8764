package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "session created", F("user_id", "u-1"))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry["level"] != "info" || entry["msg"] != "session created" {
		t.Errorf("entry = %v", entry)
	}
	if entry["user_id"] != "u-1" {
		t.Errorf("user_id = %v, want u-1", entry["user_id"])
	}
	if entry["timestamp"] == nil {
		t.Error("missing timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	ctx := context.Background()
	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("entries = %v", entries)
	}
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "token exchange",
		F("access_token", "super-secret-jwt"),
		F("refresh_token", "rt-value"),
		F("session_id", "sess-1"),
		F("user_id", "u-1"),
	)

	out := buf.String()
	for _, leaked := range []string{"super-secret-jwt", "rt-value", "sess-1"} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaked %q", leaked)
		}
	}

	entries := decodeLines(t, &buf)
	if entries[0]["access_token"] != "[REDACTED]" {
		t.Errorf("access_token = %v, want [REDACTED]", entries[0]["access_token"])
	}
	if entries[0]["user_id"] != "u-1" {
		t.Errorf("user_id = %v, want kept", entries[0]["user_id"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
