package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/govm-net/harness/config"
)

// setupLogging installs the default slog logger described by cfg. Records go
// to stderr and, when a file is configured, to a rotated log file.
func setupLogging(cfg *config.Config) error {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.Path(cfg.Log.File),
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
