package util

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogf(t *testing.T) {
	var buf bytes.Buffer
	saved, savedLogging := Logger, Logging
	defer func() { Logger, Logging = saved, savedLogging }()

	Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Logging = false
	Logf("quiet %d", 1)
	if buf.Len() != 0 {
		t.Fatal(buf.String())
	}

	Logging = true
	Logf("loud %d", 2)
	if !strings.Contains(buf.String(), "loud 2") {
		t.Fatal(buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"huh":   slog.LevelInfo,
	} {
		if got := ParseLevel(s); got != want {
			t.Fatalf("%q: %v", s, got)
		}
	}
}
