package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brianly1003/rfidbridge/internal/config"
)

// Log file rotation limits.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// setupLogging configures the global zerolog logger. The returned func
// closes the log file, if any.
func setupLogging(cfg *config.Config, stderr io.Writer) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = stderr
	if cfg.Logging.Format == "console" || verbose {
		out = zerolog.ConsoleWriter{Out: stderr}
	}

	closeFn := func() {}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
		}
		// The file always gets JSON.
		out = zerolog.MultiLevelWriter(out, file)
		closeFn = func() { _ = file.Close() }
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closeFn, nil
}
