// Package logger builds the diagnostic logger. Diagnostics are separate
// from crash output: they go to stderr in the foreground and to a rotating
// JSON file when running detached.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	lj "gopkg.in/natefinch/lumberjack.v2"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// Console returns a human-readable logger writing to f. Colors are used
// only when f is a terminal.
func Console(f *os.File, level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()),
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// RotatingFile returns the rotating writer for path.
func RotatingFile(path string, lc config.LogConfig) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(lc.MaxSizeMB, config.DefaultMaxSizeMB),
		MaxBackups: valOr(lc.MaxBackups, config.DefaultMaxBackups),
		MaxAge:     valOr(lc.MaxAgeDays, config.DefaultMaxAgeDays),
		Compress:   lc.Compress,
	}
}

// New builds the logger for cfg. The detached child logs JSON to
// cfg.LogFile(); every other process logs to stderr. The returned closer
// releases the log file and is never nil.
func New(cfg config.Config) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if !cfg.DetachedChild {
		return Console(os.Stderr, level), nopCloser{}, nil
	}

	path := cfg.LogFile()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := RotatingFile(path, cfg.Log)
	log := zerolog.New(w).Level(level).With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return log, w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
