package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("batch uploaded", "uploaded", 1000)
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json handler output not JSON: %v: %s", err, buf.String())
	}
	if entry["msg"] != "batch uploaded" || entry["uploaded"] != float64(1000) {
		t.Errorf("entry = %v", entry)
	}

	buf.Reset()
	New(&buf, "info", "text").Info("batch uploaded")
	if !strings.Contains(buf.String(), `msg="batch uploaded"`) {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRunIDContext(t *testing.T) {
	ctx := context.Background()
	if RunID(ctx) != "" {
		t.Error("empty context carries a run id")
	}
	ctx = WithRunID(ctx, "01HZX")
	if RunID(ctx) != "01HZX" {
		t.Errorf("RunID = %q", RunID(ctx))
	}

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	defer slog.SetDefault(prev)

	FromContext(ctx).Info("line processed")
	WithComponent("pipeline").Info("ready")
	out := buf.String()
	if !strings.Contains(out, "run_id=01HZX") {
		t.Errorf("run id missing: %s", out)
	}
	if !strings.Contains(out, "component=pipeline") {
		t.Errorf("component missing: %s", out)
	}
}
