// Package logging provides structured logging functionality using Go's slog package.
// It supports both text and JSON output formats, configurable log levels,
// and scan-lifecycle field helpers for the gvmrun application.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// File permissions for log directories.
	logDirPerm = 0750

	// Rotation defaults for file output.
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

// LogLevel represents the available log levels.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the available log formats.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config holds logging configuration.
type Config struct {
	Level     LogLevel  `yaml:"level" json:"level"`
	Format    LogFormat `yaml:"format" json:"format"`
	Output    string    `yaml:"output" json:"output"`
	AddSource bool      `yaml:"add_source" json:"add_source"`
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stdout",
		AddSource: false,
	}
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	var level slog.Level
	switch strings.ToLower(string(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Determine output writer
	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		// File path: rotate with lumberjack so a long-running poll loop
		// cannot fill the disk.
		if err := os.MkdirAll(filepath.Dir(cfg.Output), logDirPerm); err != nil {
			return nil, err
		}
		writer = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
		config: cfg,
	}, nil
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	logger, _ := New(DefaultConfig())
	return logger
}

// WithFields adds structured fields to the logger.
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger: l.With(fields...),
		config: l.config,
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithRunID adds a run ID field to the logger.
func (l *Logger) WithRunID(runID string) *Logger {
	return l.WithFields("run_id", runID)
}

// WithTask adds a task ID field to the logger.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.WithFields("task_id", taskID)
}

// WithReport adds a report ID field to the logger.
func (l *Logger) WithReport(reportID string) *Logger {
	return l.WithFields("report_id", reportID)
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err)
}

// InfoTask logs task-related information.
func (l *Logger) InfoTask(msg, taskID string, fields ...any) {
	allFields := append([]any{"task_id", taskID}, fields...)
	l.Info(msg, allFields...)
}

// ErrorTask logs task-related errors.
func (l *Logger) ErrorTask(msg, taskID string, err error, fields ...any) {
	allFields := append([]any{"task_id", taskID, "error", err}, fields...)
	l.Error(msg, allFields...)
}

// InfoGMP logs protocol-related information.
func (l *Logger) InfoGMP(msg string, fields ...any) {
	allFields := append([]any{"component", "gmp"}, fields...)
	l.Info(msg, allFields...)
}

// ErrorGMP logs protocol-related errors.
func (l *Logger) ErrorGMP(msg string, err error, fields ...any) {
	allFields := append([]any{"component", "gmp", "error", err}, fields...)
	l.Error(msg, allFields...)
}

// Global logger instance - can be replaced for testing.
var defaultLogger = NewDefault()

// SetDefault sets the default logger instance.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the default logger instance.
func Default() *Logger {
	return defaultLogger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, fields ...any) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs at info level using the default logger.
func Info(msg string, fields ...any) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, fields ...any) {
	defaultLogger.Warn(msg, fields...)
}

// Error logs at error level using the default logger.
func Error(msg string, fields ...any) {
	defaultLogger.Error(msg, fields...)
}

// InfoTask logs task-related information using the default logger.
func InfoTask(msg, taskID string, fields ...any) {
	defaultLogger.InfoTask(msg, taskID, fields...)
}

// ErrorTask logs task-related errors using the default logger.
func ErrorTask(msg, taskID string, err error, fields ...any) {
	defaultLogger.ErrorTask(msg, taskID, err, fields...)
}

// InfoGMP logs protocol-related information using the default logger.
func InfoGMP(msg string, fields ...any) {
	defaultLogger.InfoGMP(msg, fields...)
}

// ErrorGMP logs protocol-related errors using the default logger.
func ErrorGMP(msg string, err error, fields ...any) {
	defaultLogger.ErrorGMP(msg, err, fields...)
}
