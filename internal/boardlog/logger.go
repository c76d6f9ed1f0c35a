// Package boardlog provides file-based logging for the dashboard engine.
// The engine runs underneath a terminal or web UI, so stdout/stderr are
// not usable as log sinks.
package boardlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level filters log output. Messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "?"
}

// Logger writes timestamped key/value lines to a file.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	level Level
}

// Log is the process-wide logger. It discards everything until Init is
// called by the composition root.
var Log = &Logger{level: LevelInfo}

// Init points the global logger at path. An empty path leaves logging
// disabled. Safe to call more than once; the previous file is closed.
func Init(path string, level Level) error {
	Log.mu.Lock()
	defer Log.mu.Unlock()

	if Log.file != nil {
		Log.file.Close()
		Log.file = nil
	}
	Log.level = level
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	Log.file = f
	return nil
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Writer returns the underlying io.Writer for handing to other libraries.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return io.Discard
	}
	return l.file
}

func (l *Logger) log(level Level, msg string, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || level < l.level {
		return
	}

	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("15:04:05.000"), level, msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		line += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}

	fmt.Fprintln(l.file, line)
	l.file.Sync()
}

// Debug logs a debug message with optional key-value pairs.
func (l *Logger) Debug(msg string, keyvals ...any) { l.log(LevelDebug, msg, keyvals...) }

// Info logs an info message with optional key-value pairs.
func (l *Logger) Info(msg string, keyvals ...any) { l.log(LevelInfo, msg, keyvals...) }

// Warn logs a warning message with optional key-value pairs.
func (l *Logger) Warn(msg string, keyvals ...any) { l.log(LevelWarn, msg, keyvals...) }

// Error logs an error message with optional key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) { l.log(LevelError, msg, keyvals...) }
