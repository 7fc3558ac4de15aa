// Package logging provides the file-backed debug log. Standard output belongs
// to the terminal UI, so diagnostics go to a file instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes timestamped lines to a file. A nil Logger or one without a
// file discards everything.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	prefix string
}

// New creates a logger appending to path. An empty path returns a no-op logger.
// Parent directories are created as needed.
func New(path string) (*Logger, error) {
	if path == "" {
		return &Logger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{w: f, closer: f}
	l.Printf("=== trimwatch log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// NewWriter creates a logger writing to w. Used by tests.
func NewWriter(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// With returns a logger sharing the same output whose lines carry
// "[component]" after the timestamp.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{w: &sharedWriter{parent: l}, prefix: "[" + component + "] "}
}

// Printf writes one timestamped line.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || l.w == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("15:04:05.000")

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s%s\n", ts, l.prefix, msg)
	if f, ok := l.w.(*os.File); ok {
		f.Sync()
	}
}

// Close closes the underlying file. Safe on nil and no-op loggers.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.closer.Close()
	l.w = nil
	l.closer = nil
	return err
}

// sharedWriter serializes child loggers through their parent's mutex.
type sharedWriter struct {
	parent *Logger
}

func (s *sharedWriter) Write(p []byte) (int, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if s.parent.w == nil {
		return len(p), nil
	}
	n, err := s.parent.w.Write(p)
	if f, ok := s.parent.w.(*os.File); ok {
		f.Sync()
	}
	return n, err
}
