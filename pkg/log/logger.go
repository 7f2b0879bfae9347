package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/small-frappuccino/botdash/pkg/util"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category selects one of the category loggers.
type Category string

const (
	Application Category = "application"
	Discord     Category = "discord"
	Database    Category = "database"
	HTTP        Category = "http"
	Error       Category = "error"
)

// Logger owns the category loggers and the rotating file they share.
type Logger struct {
	base    *slog.Logger
	file    *lumberjack.Logger
	level   *slog.LevelVar
	byCateg map[Category]*slog.Logger
}

var (
	// GlobalLogger is set by SetupLogger. Before setup, category loggers write to stderr.
	GlobalLogger *Logger

	mu       sync.RWMutex
	fallback = newLogger(os.Stderr, nil, new(slog.LevelVar))
)

// Options tune SetupLogger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// FilePath overrides util.GetLogFilePath(). "-" disables the file sink.
	FilePath string
	// Console receives a copy of every record. Nil means stderr.
	Console io.Writer
}

// SetupLogger configures GlobalLogger with a console sink and a rotating file
// sink, and installs the application logger as the slog default.
func SetupLogger(opts ...Options) error {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	console := o.Console
	if console == nil {
		console = os.Stderr
	}

	var file *lumberjack.Logger
	path := o.FilePath
	if path == "" {
		path = util.GetLogFilePath()
	}
	if path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(o.Level))

	l := newLogger(console, file, level)

	mu.Lock()
	prev := GlobalLogger
	GlobalLogger = l
	mu.Unlock()
	if prev != nil {
		_ = prev.Sync()
	}

	slog.SetDefault(l.For(Application))
	return nil
}

func newLogger(console io.Writer, file *lumberjack.Logger, level *slog.LevelVar) *Logger {
	w := console
	if file != nil {
		w = io.MultiWriter(console, file)
	}
	base := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	l := &Logger{base: base, file: file, level: level, byCateg: map[Category]*slog.Logger{}}
	for _, c := range []Category{Application, Discord, Database, HTTP, Error} {
		l.byCateg[c] = base.With("category", string(c))
	}
	return l
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// For returns the logger of a category.
func (l *Logger) For(c Category) *slog.Logger {
	if lg, ok := l.byCateg[c]; ok {
		return lg
	}
	return l.base.With("category", string(c))
}

// Sync closes the rotating file. It is safe to call on a nil Logger.
func (l *Logger) Sync() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	if GlobalLogger != nil {
		return GlobalLogger
	}
	return fallback
}

// ApplicationLogger logs application lifecycle events.
func ApplicationLogger() *slog.Logger { return current().For(Application) }

// DiscordLogger logs Discord REST calls.
func DiscordLogger() *slog.Logger { return current().For(Discord) }

// DatabaseLogger logs store operations.
func DatabaseLogger() *slog.Logger { return current().For(Database) }

// HTTPLogger logs dashboard API requests.
func HTTPLogger() *slog.Logger { return current().For(HTTP) }

// ErrorLoggerRaw logs failures that have no better category.
func ErrorLoggerRaw() *slog.Logger { return current().For(Error) }
