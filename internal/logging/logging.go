// Package logging builds the process-wide slog logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup
type Options struct {
	Level   string
	File    string
	Console io.Writer
	// Journal forces the journald handler on or off. Nil detects a systemd service.
	Journal *bool
}

// Logger owns the handlers behind the default slog logger
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *lumberjack.Logger
}

// Setup builds a fan-out logger and installs it as slog's default
func Setup(opts Options) *Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))

	var handlers []slog.Handler

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	runningAsService := isSystemdService()
	if opts.Journal != nil {
		runningAsService = *opts.Journal
	}

	var consoleHandler slog.Handler
	if !runningAsService {
		consoleHandler = slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, consoleHandler)
	}

	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	}

	if runningAsService {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return journalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = journalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if consoleHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "journald handler unavailable", 0)
				record.Add("error", err)
				_ = consoleHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journal)
		}
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	slog.SetDefault(logger)

	return &Logger{Logger: logger, level: level, file: file}
}

// SetLevel changes the level of every handler
func (l *Logger) SetLevel(s string) {
	l.level.Set(ParseLevel(s))
}

// Close flushes and closes the rotating log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps debug|info|warn|error to a slog level. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func journalKey(str string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(str))
}

func isSystemdService() bool {
	if os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
