package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestLogger_LevelsGoToTheirFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Info("scan %d done", 1)
	l.Warning("queue almost full")
	l.Error("model crashed")
	l.Sync()

	info := readLog(t, dir, InfoFile)
	if !strings.Contains(info, "scan 1 done") || strings.Contains(info, "queue almost full") {
		t.Errorf("Unexpected info.log: %q", info)
	}
	warning := readLog(t, dir, WarningFile)
	if !strings.Contains(warning, "queue almost full") || strings.Contains(warning, "model crashed") {
		t.Errorf("Unexpected warning.log: %q", warning)
	}
	if !strings.Contains(readLog(t, dir, ErrorFile), "model crashed") {
		t.Error("error.log is missing the error entry")
	}
	if !strings.Contains(info, `"timestamp"`) {
		t.Error("File entries should be JSON with a timestamp key")
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	l.Warning("to be removed")
	l.Sync()

	if err := l.CleanLogs(WarningFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, dir, WarningFile); got != "" {
		t.Errorf("Expected empty warning.log, got %q", got)
	}
	if err := l.CleanLogs("../secrets"); err == nil {
		t.Error("Expected error for unknown log file")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	if err := l.CleanLogs(InfoFile); err != nil {
		t.Errorf("Nop CleanLogs should be a no-op, got %v", err)
	}
	l.Close()
}
