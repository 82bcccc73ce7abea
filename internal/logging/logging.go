package logging

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

var levelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) log.Level {
	if lvl, ok := levelMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return log.LevelInfo
}

// Setup installs a tint handler as the default logger. With a log file the
// output is duplicated there and colours are turned off. The returned
// closer releases the file.
func Setup(level, logFile string) (*log.Logger, io.Closer, error) {
	var (
		out     io.Writer = os.Stdout
		closer  io.Closer = nopCloser{}
		noColor bool
	)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
		noColor = true
	}

	logger := New(out, ParseLevel(level), noColor)
	log.SetDefault(logger)

	return logger, closer, nil
}

func New(w io.Writer, level log.Level, noColor bool) *log.Logger {
	return log.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}

// Timed runs fn and logs its duration at debug, or the failure at warn.
func Timed(logger *log.Logger, op string, fn func() error) error {
	if logger == nil {
		logger = log.Default()
	}

	start := time.Now()
	err := fn()
	ms := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("Operation failed", "op", op, "duration_ms", ms, "err", err)
		return err
	}

	logger.Debug("Operation completed", "op", op, "duration_ms", ms)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
