package config

import (
	"time"

	"github.com/charmbracelet/log"
)

type LogFormat string

const (
	LogFormatText   LogFormat = "text"
	LogFormatJSON   LogFormat = "json"
	LogFormatLogfmt LogFormat = "logfmt"
)

type LogLevel = string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type DispatchMode string

const (
	// DispatchModePriority picks the first matching row of the action table.
	DispatchModePriority DispatchMode = "priority"
	// DispatchModeLegacy lets the last matching row win.
	DispatchModeLegacy DispatchMode = "legacy"
)

type LogConfig struct {
	Level       string    `yaml:"level"`
	Format      LogFormat `yaml:"format"`
	ShowSource  bool      `yaml:"show_source"`
	FileEnabled bool      `yaml:"file_enabled"`
	FilePath    string    `yaml:"file_path"`
}

type PkgmgrConfig struct {
	MaxConcurrentDownloads int    `yaml:"max_concurrent_downloads"`
	CacheDir               string `yaml:"cache_dir"`
	PackagistURL           string `yaml:"packagist_url"`
}

// BackendConfig locates the CMS installation the backend module manages.
type BackendConfig struct {
	Root         string       `yaml:"root"`
	ComposerDir  string       `yaml:"composer_dir"`
	DispatchMode DispatchMode `yaml:"dispatch_mode"`
}

type EnvironmentConfig struct {
	PHPBinary     string   `yaml:"php_binary"`
	PHPConstraint string   `yaml:"php_constraint"`
	PHPExtensions []string `yaml:"php_extensions"`
	RequireGit    bool     `yaml:"require_git"`
}

type SelfUpdateConfig struct {
	URL         string        `yaml:"url"`
	ChecksumURL string        `yaml:"checksum_url"`
	FreshFor    time.Duration `yaml:"fresh_for"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CMSConfig describes the running CMS; its version is kept in sync with the
// root package requirement.
type CMSConfig struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Pkgmgr      PkgmgrConfig      `yaml:"pkgmgr"`
	Backend     BackendConfig     `yaml:"backend"`
	Environment EnvironmentConfig `yaml:"environment"`
	SelfUpdate  SelfUpdateConfig  `yaml:"selfupdate"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	CMS         CMSConfig         `yaml:"cms"`
}

// LoggerHandle bundles a logger with the closer of its optional file sink.
type LoggerHandle struct {
	Logger *log.Logger
	Closer func() error
}
