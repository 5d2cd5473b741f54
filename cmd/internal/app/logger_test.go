package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandler_Formats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(newHandler(&buf, slog.LevelInfo, "json", true)).Info("server.start", "addr", ":8080")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json format must emit JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "server.start" || rec["addr"] != ":8080" {
		t.Fatalf("unexpected record: %v", rec)
	}

	buf.Reset()
	slog.New(newHandler(&buf, slog.LevelInfo, "auto", false)).Info("server.start")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("auto without a terminal must emit JSON, got %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, slog.LevelInfo, "pretty", false)).Info("server.start", "addr", ":8080")
	if !strings.Contains(buf.String(), "INFO  server.start") || !strings.Contains(buf.String(), "addr=:8080") {
		t.Fatalf("unexpected pretty output: %q", buf.String())
	}

	buf.Reset()
	slog.New(newHandler(&buf, slog.LevelWarn, "json", false)).Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
}
