package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelInfo, FormatJSON, &buf)

	l.Info("editor launched", "pid", 1234)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "editor launched" {
		t.Fatalf("expected msg field, got %+v", entry)
	}
	if entry["pid"] != float64(1234) {
		t.Fatalf("expected pid attribute, got %+v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelWarn, FormatText, &buf)

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info suppressed at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warn entry, got %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.LevelError, FormatText, &buf)

	l.Info("before")
	l.SetLevel(slog.LevelInfo)
	l.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Fatalf("expected info suppressed before SetLevel, got %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Fatalf("expected info logged after SetLevel, got %q", out)
	}
	if l.Level() != slog.LevelInfo {
		t.Fatalf("expected level info, got %v", l.Level())
	}
}

func TestAddOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := New(slog.LevelInfo, FormatText, &first)
	l.AddOutput(&second)

	l.Info("broadcast")

	if !strings.Contains(first.String(), "broadcast") {
		t.Fatalf("expected entry in first writer, got %q", first.String())
	}
	if !strings.Contains(second.String(), "broadcast") {
		t.Fatalf("expected entry in second writer, got %q", second.String())
	}
}

func TestGetLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := GetLevelFromString(input); got != want {
			t.Fatalf("GetLevelFromString(%q) = %v, want %v", input, got, want)
		}
	}
}
