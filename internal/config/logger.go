package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

var levels = map[string]log.Level{
	LogLevelDebug: log.DebugLevel,
	LogLevelInfo:  log.InfoLevel,
	LogLevelWarn:  log.WarnLevel,
	LogLevelError: log.ErrorLevel,
}

var formatters = map[LogFormat]log.Formatter{
	LogFormatText:   log.TextFormatter,
	LogFormatJSON:   log.JSONFormatter,
	LogFormatLogfmt: log.LogfmtFormatter,
}

// NewLogger creates a configured charmbracelet/log.Logger from the config.
// Output goes to stderr, the optional log file and any extra writers.
// Returns LoggerHandle with Closer to prevent file descriptor leaks.
func NewLogger(cfg Config, extra ...io.Writer) (*LoggerHandle, error) {
	level, ok := levels[cfg.Log.Level]
	if !ok {
		return nil, fmt.Errorf("invalid log.level %q (must be one of: %v): %w",
			cfg.Log.Level, ValidLogLevels(), ErrInvalidLogLevel)
	}

	formatter, ok := formatters[cfg.Log.Format]
	if !ok {
		return nil, fmt.Errorf("invalid log.format %q (must be one of: %v): %w",
			cfg.Log.Format, ValidLogFormats(), ErrInvalidLogFormat)
	}

	var file *os.File
	writers := []io.Writer{os.Stderr}

	if cfg.Log.FileEnabled {
		path := cfg.Log.FilePath
		if path == "" {
			path = filepath.Join(xdg.StateHome, appDirName, "logs", "app.log")
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %q: %w", filepath.Dir(path), err)
		}

		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", path, err)
		}

		writers = append(writers, file)
	}
	writers = append(writers, extra...)

	logger := log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    cfg.Log.ShowSource,
		Formatter:       formatter,
		Prefix:          "composer-backend",
	})

	closer := func() error {
		if file != nil {
			return file.Close()
		}
		return nil
	}

	return &LoggerHandle{
		Logger: logger,
		Closer: closer,
	}, nil
}
