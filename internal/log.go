package internal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Log output formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var zerologLevels = map[LogLevel]zerolog.Level{
	LogLevelError: zerolog.ErrorLevel,
	LogLevelWarn:  zerolog.WarnLevel,
	LogLevelInfo:  zerolog.InfoLevel,
	LogLevelDebug: zerolog.DebugLevel,
	LogLevelTrace: zerolog.TraceLevel,
}

// Logger provides leveled logging on top of zerolog
type Logger struct {
	level LogLevel
	zl    zerolog.Logger
}

// NewLogger creates a console logger on stderr with the specified level
func NewLogger(level LogLevel) *Logger {
	return newLogger(level, zerolog.ConsoleWriter{Out: os.Stderr})
}

// NewLoggerWithOutput creates a logger writing to w in the given format ("text" or "json")
func NewLoggerWithOutput(levelStr, format string, w io.Writer) (*Logger, error) {
	level, err := ParseLogLevel(levelStr)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case LogFormatJSON:
		out = w
	case LogFormatText, "":
		out = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stderr}
	default:
		return nil, fmt.Errorf("invalid logging format: %s", format)
	}
	return newLogger(level, out), nil
}

func newLogger(level LogLevel, w io.Writer) *Logger {
	zl := zerolog.New(w).Level(zerologLevels[level]).With().Timestamp().Logger()
	return &Logger{level: level, zl: zl}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL and LOG_FORMAT environment variables
func NewDefaultLogger() *Logger {
	level := LogLevelInfo // default
	if parsed, err := ParseLogLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = parsed
	}
	if os.Getenv("LOG_FORMAT") == LogFormatJSON {
		return newLogger(level, os.Stderr)
	}
	return NewLogger(level)
}

// ParseLogLevel accepts ERROR, WARN, INFO, DEBUG or TRACE in any case. Empty means INFO.
func ParseLogLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "ERROR":
		return LogLevelError, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "INFO", "":
		return LogLevelInfo, nil
	case "DEBUG":
		return LogLevelDebug, nil
	case "TRACE":
		return LogLevelTrace, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", levelStr)
	}
}

// With returns a child logger tagged with a component name
func (l *Logger) With(component string) *Logger {
	return &Logger{level: l.level, zl: l.zl.With().Str("component", component).Logger()}
}

// Zerolog exposes the underlying logger for structured fields
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	l.zl.Trace().Msgf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
