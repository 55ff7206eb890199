// Package tuilog routes retrace diagnostics to a log file. The terminal
// owns stdout and stderr while the TUI runs, so nothing may print there;
// commands enable file logging with --log or RETRACE_LOG_FILE.
//
// It is a separate package to avoid import cycles with the tui package.
package tuilog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EnvFile names the environment variable holding the default log path.
const EnvFile = "RETRACE_LOG_FILE"

// EnvLevel names the environment variable holding the minimum level.
const EnvLevel = "RETRACE_LOG_LEVEL"

// Log is the process-wide logger. It discards everything until Init
// points it at a file.
var Log = &Logger{zl: zerolog.Nop()}

// Logger writes structured, timestamped JSON lines through zerolog.
// The zero value is disabled.
type Logger struct {
	mu      sync.Mutex
	zl      zerolog.Logger
	file    *os.File
	enabled bool
}

// Init points the global logger at path, appending. An empty path
// leaves logging disabled. Calling Init again re-targets the logger and
// closes the previous file.
func Init(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	zerolog.TimeFieldFormat = time.RFC3339

	Log.mu.Lock()
	defer Log.mu.Unlock()
	if Log.file != nil {
		Log.file.Close()
	}
	Log.file = f
	Log.enabled = true
	Log.zl = zerolog.New(f).Level(levelFromEnv()).With().Timestamp().Logger()
	Log.zl.Info().Str("path", path).Msg("logging started")
	return nil
}

// InitFromEnv initializes logging from RETRACE_LOG_FILE when set.
func InitFromEnv() error {
	return Init(os.Getenv(EnvFile))
}

// levelFromEnv reads RETRACE_LOG_LEVEL. The default is debug: a log
// file only exists when explicitly requested, so keep it verbose.
func levelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv(EnvLevel)) {
	case "trace":
		return zerolog.TraceLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.DebugLevel
	}
}

// Close closes the log file and disables the logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
	l.zl = zerolog.Nop()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Enabled reports whether logging is active.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Writer returns the underlying writer for handing to components that
// take an io.Writer, or io.Discard while disabled.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || l.file == nil {
		return io.Discard
	}
	return l.file
}

// logger snapshots the zerolog instance so Init and Close can swap it
// out from under concurrent log calls.
func (l *Logger) logger() (zerolog.Logger, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl, l.enabled
}

func (l *Logger) log(level zerolog.Level, msg string, keyvals []any) {
	zl, ok := l.logger()
	if !ok {
		return
	}
	ev := zl.WithLevel(level)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, isStr := keyvals[i].(string)
		if !isStr {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}

// Debug logs a debug message with optional key-value pairs.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.log(zerolog.DebugLevel, msg, keyvals)
}

// Info logs an info message with optional key-value pairs.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.log(zerolog.InfoLevel, msg, keyvals)
}

// Warn logs a warning message with optional key-value pairs.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.log(zerolog.WarnLevel, msg, keyvals)
}

// Error logs an error message with optional key-value pairs.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.log(zerolog.ErrorLevel, msg, keyvals)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...any) {
	if zl, ok := l.logger(); ok {
		zl.Debug().Msgf(format, args...)
	}
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...any) {
	if zl, ok := l.logger(); ok {
		zl.Info().Msgf(format, args...)
	}
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...any) {
	if zl, ok := l.logger(); ok {
		zl.Warn().Msgf(format, args...)
	}
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	if zl, ok := l.logger(); ok {
		zl.Error().Msgf(format, args...)
	}
}

// Timed logs the duration of an operation at debug level. Usage:
//
//	defer tuilog.Log.Timed("render transcript")()
func (l *Logger) Timed(operation string) func() {
	zl, ok := l.logger()
	if !ok {
		return func() {}
	}
	start := time.Now()
	zl.Debug().Str("op", operation).Msg("started")
	return func() {
		zl.Debug().Str("op", operation).Dur("duration", time.Since(start)).Msg("completed")
	}
}
