package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Format represents the log format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Logger wraps slog with runtime-adjustable level, format and outputs.
type Logger struct {
	*slog.Logger
	mu      sync.Mutex
	writers []io.Writer
	level   slog.Level
	format  Format
}

// New creates a new logger writing to the given destinations.
func New(level slog.Level, format Format, writers ...io.Writer) *Logger {
	l := &Logger{
		writers: writers,
		level:   level,
		format:  format,
	}
	l.Logger = slog.New(l.newHandler())
	return l
}

func (l *Logger) newHandler() slog.Handler {
	multiWriter := io.MultiWriter(l.writers...)
	opts := &slog.HandlerOptions{Level: l.level}
	if l.format == FormatJSON {
		return slog.NewJSONHandler(multiWriter, opts)
	}
	return slog.NewTextHandler(multiWriter, opts)
}

// rebuild recreates the slog handler after a config mutation. Caller holds mu.
func (l *Logger) rebuild() {
	l.Logger = slog.New(l.newHandler())
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// SetFormat changes the log format
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
	l.rebuild()
}

// AddOutput adds a new output destination
func (l *Logger) AddOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writers = append(l.writers, w)
	l.rebuild()
}

// Level returns the current log level
func (l *Logger) Level() slog.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Rotate closes the current log file and starts writing to path.
func (l *Logger) Rotate(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var newWriters []io.Writer
	for _, writer := range l.writers {
		if file, ok := writer.(*os.File); ok {
			// Don't close stdout/stderr
			if file != os.Stdout && file != os.Stderr {
				file.Close()
				continue
			}
		}
		newWriters = append(newWriters, writer)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.writers = append(newWriters, file)
	l.rebuild()
	return nil
}

// Close closes all file writers
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.writers {
		if file, ok := writer.(*os.File); ok {
			if file != os.Stdout && file != os.Stderr {
				if err := file.Close(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Init initializes the default logger
func Init(level slog.Level, format Format, paths ...string) error {
	var writers []io.Writer
	// stderr, not stdout: the stdio transport owns stdout for JSON-RPC frames.
	writers = append(writers, os.Stderr)

	for _, path := range paths {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}

	defaultLogger = New(level, format, writers...)
	return nil
}

// GetLevelFromString returns the log level from a string
func GetLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultLogger is the default logger instance
var defaultLogger = New(slog.LevelInfo, FormatText, os.Stderr)

// Helper functions for common logging patterns
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	defaultLogger.ErrorContext(ctx, msg, args...)
}
