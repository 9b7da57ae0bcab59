package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Leveled logger for the document service. Printf-style helpers render the
// message; Info/Warn/Error/Debug take slog key/value pairs.

const LevelFatal = slog.Level(12)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	logger = newLogger(os.Stdout)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values mean info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	case "fatal":
		level.Set(LevelFatal)
	default:
		level.Set(slog.LevelInfo)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debugf(format string, v ...any) { current().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { current().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { current().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { current().Error(fmt.Sprintf(format, v...)) }

func Fatalf(format string, v ...any) {
	current().Log(context.Background(), LevelFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Debug(msg string, args ...any) { current().Debug(msg, args...) }
func Info(msg string, args ...any)  { current().Info(msg, args...) }
func Warn(msg string, args ...any)  { current().Warn(msg, args...) }
func Error(msg string, args ...any) { current().Error(msg, args...) }

// LevelString returns the current level as text.
func LevelString() string {
	switch l := level.Level(); {
	case l >= LevelFatal:
		return "fatal"
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
