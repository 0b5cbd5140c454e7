package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	logger.Sync()

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn not logged: %q", out)
	}
}

func TestNew_ProductionConsoleIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(Config{Level: "info", Production: true}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Named("evaluation").Info("scored")
	logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("console output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "scored" || entry["logger"] != "evaluation" || entry["level"] != "INFO" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_FileKeepsInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "okdok.log")
	var buf bytes.Buffer
	logger, err := newLogger(Config{Level: "error", File: path, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("to the file only")
	logger.Sync()

	if buf.Len() != 0 {
		t.Errorf("console got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to the file only") {
		t.Errorf("file = %q", data)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
