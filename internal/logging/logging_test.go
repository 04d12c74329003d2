package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Errorf("parseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestManager_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audiocove.log")
	mgr, logger := NewManager(Config{Level: "info", Format: "json", FilePath: logPath})

	logger.Info("hello", "key", "value")
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}

func TestManager_SetLevel(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "error", Format: "text"})
	defer mgr.Close() //nolint:errcheck

	if logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled at error level")
	}
	mgr.SetLevel("debug")
	if !logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}
}
