package expertise

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunLogger writes a detailed per-call trace of an expertise run to a
// file. The zero value and a nil pointer are both safe no-op loggers,
// so callers only wire one when they want the trace.
type RunLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewRunLogger creates a logger writing to the given path, creating
// parent directories as needed. An empty path returns a no-op logger.
func NewRunLogger(logPath string) (*RunLogger, error) {
	if logPath == "" {
		return &RunLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &RunLogger{file: f}
	l.Log("=== Expertise Run Log Started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// NewRunLoggerForDir creates a run logger under dir/.norma/logs,
// degrading to a no-op logger when the directory cannot be created.
func NewRunLoggerForDir(dir string) *RunLogger {
	logPath := filepath.Join(dir, ".norma", "logs", "expertise-run.log")
	l, err := NewRunLogger(logPath)
	if err != nil {
		return &RunLogger{}
	}
	return l
}

// Log writes a timestamped line. Safe on a nil or no-op logger.
func (l *RunLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.file, "[%s] %s\n", ts, fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying file.
func (l *RunLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
