// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects the output format, level and optional rotating log file.
type Params struct {
	Level  string
	Format string
	File   string
	// Stdout also writes to stderr when File is set.
	Stdout bool
}

// New returns a logger and a closer for the log file (a no-op without one).
func New(p Params) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(p.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if p.File != "" {
		file := p.File
		if !strings.HasSuffix(file, ".log") {
			file += ".log"
		}
		lj := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // megabytes
			MaxBackups: 10,
			Compress:   true,
		}
		closer = lj
		out = lj
		if p.Stdout {
			out = io.MultiWriter(os.Stderr, lj)
		}
	}

	logger, err := NewWithWriter(out, level, p.Format)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return logger, closer, nil
}

// NewWithWriter builds a text or json logger on w.
func NewWithWriter(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
