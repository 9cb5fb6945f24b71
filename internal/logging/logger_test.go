package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}
	log.Info("test_message_from_logging_test")
}

func TestNewLogger_TeesToConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	log, err := newLogger(dir, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Info("cycle_done", zap.Int("records", 3))
	log.Debug("hidden_at_info")
	_ = log.Sync()

	if !strings.Contains(buf.String(), "cycle_done") {
		t.Fatalf("console output missing event: %q", buf.String())
	}
	if strings.Contains(buf.String(), "hidden_at_info") {
		t.Fatalf("debug should be filtered at info level")
	}

	b, err := os.ReadFile(filepath.Join(dir, "slotwatch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"cycle_done"`) || !strings.Contains(string(b), `"records":3`) {
		t.Fatalf("file output unexpected: %s", b)
	}
}
