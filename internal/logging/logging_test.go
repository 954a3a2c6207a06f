package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSyncLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Dir: dir, Mode: Sync, Level: zapcore.DebugLevel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Zap().Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected a log file to be created, got %v err=%v", entries, err)
	}
}

func TestAsyncLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Dir: dir, Mode: Async, QueueSize: 16, Level: zapcore.DebugLevel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 5; i++ {
		l.Zap().Info("async line")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected a log file to be created, got %v err=%v", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty log file")
	}
}

func TestRotatingWriterRotatesOnLineCount(t *testing.T) {
	dir := t.TempDir()
	rw, err := newRotatingWriter(dir, 2)
	if err != nil {
		t.Fatalf("newRotatingWriter: %v", err)
	}
	defer rw.Close()

	for i := 0; i < 5; i++ {
		if _, err := rw.Write([]byte("line\n")); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected rotation to produce multiple files, got %d", len(entries))
	}
}
