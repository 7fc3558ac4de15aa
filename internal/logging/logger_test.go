package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Printf("ignored %d", 1)
	if err := l.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if l.With("x") != nil {
		t.Error("expected nil child of nil logger")
	}
}

func TestLogger_Nop(t *testing.T) {
	l := Nop()
	l.Printf("ignored")
	l.With("monitor").Printf("ignored")
	if err := l.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestLogger_WritesTimestampedLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.Printf("hello %s", "world")
	l.With("monitor").Printf("resubscribe")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.HasSuffix(lines[0], "] hello world") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "[monitor] resubscribe") {
		t.Errorf("expected component prefix, got %q", lines[1])
	}
}

func TestNew_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trimwatch.log")

	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Printf("line")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "log started") || !strings.Contains(string(data), "line") {
		t.Errorf("unexpected log contents %q", data)
	}

	// Writes after close are dropped.
	l.Printf("after close")
}

func TestNew_EmptyPath(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	l.Printf("ignored")
}
