package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"minirag/config"
)

// Logger is a slog.Logger together with the rotating file it may write to.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New builds a logger from cfg. Records go to stderr and, when cfg.File is
// set, to a size-rotated file resolved against rootDir. verbose forces debug
// level.
func New(cfg config.LoggingConfig, rootDir string, verbose bool) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var file *lumberjack.Logger
	if cfg.File != "" {
		path := config.ResolvePath(rootDir, cfg.File)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = io.MultiWriter(os.Stderr, file)
	}

	return &Logger{
		Logger: slog.New(newHandler(w, cfg.Format, level)),
		file:   file,
	}, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
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

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops every record, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
