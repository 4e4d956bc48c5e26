// Package logging configures the process-wide slog logger. Records fan out
// to the console and an optional rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization.
// Values can be provided directly or via environment variables:
//   - AUTOTYPE_LOG_LEVEL=debug|info|warn|error
//   - AUTOTYPE_LOG_FORMAT=text|json
//   - AUTOTYPE_LOG_FILE=<path> (enables file logging with rotation)
//   - AUTOTYPE_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "text" or "json"
	AddSource bool
	File      string

	// Console disables stderr output when false. The TUI turns it off
	// while it owns the terminal.
	Console bool

	// Writer replaces stderr for console output, mostly for tests
	Writer io.Writer
}

// Env var names read by FromEnv.
const (
	EnvLogLevel  = "AUTOTYPE_LOG_LEVEL"
	EnvLogFormat = "AUTOTYPE_LOG_FORMAT"
	EnvLogFile   = "AUTOTYPE_LOG_FILE"
	EnvLogSource = "AUTOTYPE_LOG_SOURCE"
)

var (
	level = new(slog.LevelVar)

	defaultLoggerMu sync.RWMutex
	defaultLogger   *slog.Logger
	fileWriter      *lj.Logger
)

// L returns the process logger, initializing from env on first use
func L() *slog.Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	defaultLoggerMu.RLock()
	l = defaultLogger
	defaultLoggerMu.RUnlock()
	return l
}

// Init configures the process logger and sets slog.Default as well.
// Calling it again replaces the previous configuration.
func Init(opts Options) {
	level.Set(ParseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var handlers []slog.Handler

	if opts.Console {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
			handlers = append(handlers, slog.NewJSONHandler(w, hopts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, hopts))
		}
	}

	defaultLoggerMu.Lock()
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		fileWriter = &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(fileWriter, hopts))
	}
	defaultLoggerMu.Unlock()

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.DiscardHandler
	case 1:
		h = handlers[0]
	default:
		h = slogmulti.Fanout(handlers...)
	}

	logger := slog.New(h).With(slog.String("app", "autotype"))

	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
	slog.SetDefault(logger)
}

// Close flushes and closes the rotated log file, if any
func Close() error {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// FromEnv builds Options from environment variables
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLogLevel, "info"),
		Format:    getenv(EnvLogFormat, "text"),
		AddSource: IsTrue(os.Getenv(EnvLogSource)),
		File:      os.Getenv(EnvLogFile),
		Console:   true,
	}
}

// SetLevel changes the level of the running logger
func SetLevel(s string) {
	level.Set(ParseLevel(s))
}

// WithComponent returns a logger with the component attribute pre-set
func WithComponent(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// ParseLevel converts a level name to slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// IsTrue reports whether an environment value switches a setting on
func IsTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
