package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"trace level", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func readDecisions(t *testing.T, dir string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, DecisionFileName))
	if err != nil {
		t.Fatalf("failed to read %s: %v", DecisionFileName, err)
	}
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse JSONL entry %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")

	if dl != nil {
		t.Error("expected nil DecisionLogger at info level")
	}

	// Nil logger should still be safe to use
	dl.Log(map[string]any{"event": "test"})
	dl.Event("admitted", "target", "n1")
	if dl.Path() != "" {
		t.Errorf("nil Path() = %q", dl.Path())
	}

	if _, err := os.Stat(filepath.Join(dir, DecisionFileName)); err == nil {
		t.Error("decision file should not exist at info level")
	}
}

func TestNewDecisionLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "trace"} {
		t.Run(level, func(t *testing.T) {
			dir := t.TempDir()
			dl := NewDecisionLogger(dir, level)
			if dl == nil {
				t.Fatalf("expected DecisionLogger at %s level", level)
			}
			defer dl.Close()

			if dl.Path() != filepath.Join(dir, DecisionFileName) {
				t.Errorf("Path() = %s", dl.Path())
			}

			dl.Log(map[string]any{"event": "refractory_skip", "activation": 0.99})

			entries := readDecisions(t, dir)
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			if entries[0]["event"] != "refractory_skip" || entries[0]["activation"] != 0.99 {
				t.Errorf("entry = %v", entries[0])
			}
			if _, ok := entries[0]["time"]; !ok {
				t.Error("expected 'time' field in decision log entry")
			}
		})
	}
}

func TestDecisionLogger_Event(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	defer dl.Close()

	dl.Event("admitted", "target", "n1", "siblings", 2)
	dl.Event("cycle_skip", "node", "a", "dangling")

	entries := readDecisions(t, dir)
	if len(entries) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entries))
	}
	if entries[0]["event"] != "admitted" || entries[0]["target"] != "n1" || entries[0]["siblings"] != float64(2) {
		t.Errorf("first entry = %v", entries[0])
	}
	if entries[1]["event"] != "cycle_skip" || entries[1]["!BADKEY"] != "dangling" {
		t.Errorf("second entry = %v", entries[1])
	}
}

func TestDecisionLogger_NilSafety(t *testing.T) {
	var dl *DecisionLogger
	dl.Log(map[string]any{"event": "should_not_panic"})
	dl.Event("should_not_panic")
	dl.Close()
}

func TestDecisionLogger_DoesNotMutateCallerMap(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")
	defer dl.Close()

	event := map[string]any{"event": "test"}
	dl.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")

	dl.Log(map[string]any{"event": "before_close"})
	dl.Close()

	// Should be a no-op, not panic or error
	dl.Log(map[string]any{"event": "after_close"})
}

func TestNewDecisionLogger_CreatesDirWithPrivatePerms(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), ".pamem", "sub")

	dl := NewDecisionLogger(nestedDir, "debug")
	if dl == nil {
		t.Fatal("expected non-nil DecisionLogger when dir needs creation")
	}
	defer dl.Close()

	dl.Log(map[string]any{"event": "dir_create_test"})

	info, err := os.Stat(filepath.Join(nestedDir, DecisionFileName))
	if err != nil {
		t.Fatalf("decision file should exist after dir creation: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
