// Package logging sets up the cactus debug log. The dashboard owns the
// terminal, so logs go to a rotating file instead of stderr.
package logging

import (
	"io"
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// File is the log file path. Empty discards all output.
	File string

	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string

	// MaxSizeMB is the max size in MB before rotation (default: 10)
	MaxSizeMB int

	// MaxBackups is rotated files to keep (default: 3)
	MaxBackups int
}

var (
	globalMu     sync.RWMutex
	globalLogger *slog.Logger
	fileW        *lumberjack.Logger
)

// Init initializes the global logging system.
func Init(cfg Config) *slog.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.File == "" {
		globalLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return globalLogger
	}

	fileW = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	globalLogger = slog.New(slog.NewTextHandler(fileW, &slog.HandlerOptions{
		Level: level,
	}))
	return globalLogger
}

// Logger returns the global logger. Safe to call before Init.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return globalLogger
}

// Shutdown closes the log file.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if fileW != nil {
		fileW.Close()
		fileW = nil
	}
	globalLogger = nil
}
