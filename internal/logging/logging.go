// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level, the output format and an optional log file
type Options struct {
	Level  string
	Format string
	File   string
}

// Logger wraps slog.Logger and owns the rotating log file, if any
type Logger struct {
	*slog.Logger

	file   *lumberjack.Logger
	stopCh chan struct{}
	once   sync.Once
}

// ParseLevel maps a level name to an slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates the logger and installs it as the slog default.
// When opts.File is set, output is duplicated into a file that rotates daily
// and keeps 30 old copies.
func New(opts Options) *Logger {
	l := &Logger{stopCh: make(chan struct{})}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     30,
			LocalTime:  true,
		}
		out = io.MultiWriter(os.Stdout, l.file)
	}

	l.Logger = slog.New(newHandler(out, opts))
	slog.SetDefault(l.Logger)
	if l.file != nil {
		go l.rotateDaily()
	}
	return l
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// rotateDaily rotates the file at every local midnight
func (l *Logger) rotateDaily() {
	for {
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		timer := time.NewTimer(time.Until(midnight))

		select {
		case <-l.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			if err := l.file.Rotate(); err != nil {
				l.Error("Failed to rotate log file", "error", err)
			}
		}
	}
}

// Close stops rotation and closes the log file
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		close(l.stopCh)
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
