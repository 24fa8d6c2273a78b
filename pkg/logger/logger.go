// Package logger provides the shared structured logger for the scribe-audio
// service. It wraps log/slog with environment-aware handlers (text for dev,
// JSON for prod) and optional rotating file output.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines logger initialization options.
// Level accepts debug/info/warn/error; Environment selects the handler
// format (prod -> JSON, anything else -> text). When File is non-empty,
// log output is mirrored to a size-rotated file.
type Config struct {
	Level       string
	Environment string
	WithSource  bool

	// File is an optional path for rotated file output.
	File       string
	MaxSizeMB  int // rotate after this many megabytes (default 100)
	MaxBackups int // rotated files to keep (default 3)
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
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
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// New creates a slog.Logger from the given config without touching the
// global instance.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	var handler slog.Handler
	if strings.ToLower(cfg.Environment) == "prod" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init initializes the global logger; repeated calls return the logger from
// the first successful call.
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
	})
	return global, initErr
}

// L returns the global logger. Before Init runs it falls back to
// slog.Default so library code and tests can log without setup.
func L() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

// LogSegmentProcessing emits a structured log event for one step of the
// segment transcription pipeline.
// stage: estimate/split/transcribe/reassemble
// action: start/success/error/retry
func LogSegmentProcessing(logger *slog.Logger, stage, action string, segmentIndex int, durationMs int64, errorCode string) {
	attrs := []slog.Attr{
		slog.String("stage", stage),
		slog.String("action", action),
		slog.Int("segment", segmentIndex),
		slog.Int64("duration_ms", durationMs),
	}

	if errorCode != "" {
		attrs = append(attrs, slog.String("error_code", errorCode))
		logger.LogAttrs(context.Background(), slog.LevelError, "Segment processing error", attrs...)
	} else {
		logger.LogAttrs(context.Background(), slog.LevelInfo, "Segment processing event", attrs...)
	}
}
