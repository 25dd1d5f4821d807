package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		if prev != nil {
			slog.SetDefault(prev)
		}
	})

	var buf bytes.Buffer
	InitWithHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestComponent_FollowsLaterInit(t *testing.T) {
	log := Component("digest")
	buf := capture(t, slog.LevelInfo)

	log.Info("compressed", "centroids", 12)
	out := buf.String()
	if !strings.Contains(out, "component=digest") || !strings.Contains(out, "centroids=12") {
		t.Errorf("unexpected output: %q", out)
	}

	buf.Reset()
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	ctx := ContextWithSeries(context.Background(), "disk/sda")
	WithContext(ctx).Debug("snapshot exported")
	if !strings.Contains(buf.String(), `series=disk/sda`) {
		t.Errorf("expected series attribute, got %q", buf.String())
	}

	buf.Reset()
	WithContext(context.Background()).Info("no series")
	if strings.Contains(buf.String(), "series=") {
		t.Errorf("unexpected series attribute: %q", buf.String())
	}
}

func TestInitWriter_JSON(t *testing.T) {
	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		if prev != nil {
			slog.SetDefault(prev)
		}
	})

	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelWarn, true)
	Info("dropped")
	Warn("kept", "code", "INVALID_INPUT")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec["msg"] != "kept" || rec["code"] != "INVALID_INPUT" || rec["level"] != "WARN" {
		t.Errorf("unexpected record: %v", rec)
	}
}
