package config

import (
	"errors"
	"slices"
)

var (
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidLogFormat    = errors.New("invalid log format")
	ErrInvalidDispatchMode = errors.New("invalid dispatch mode")
)

func ValidLogLevels() []string {
	return []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}
}

func ValidLogFormats() []LogFormat {
	return []LogFormat{LogFormatText, LogFormatJSON, LogFormatLogfmt}
}

func ValidDispatchModes() []DispatchMode {
	return []DispatchMode{DispatchModePriority, DispatchModeLegacy}
}

func IsValidLogLevel(level string) bool {
	return slices.Contains(ValidLogLevels(), level)
}

func IsValidLogFormat(format LogFormat) bool {
	return slices.Contains(ValidLogFormats(), format)
}

func IsValidDispatchMode(mode DispatchMode) bool {
	return slices.Contains(ValidDispatchModes(), mode)
}
