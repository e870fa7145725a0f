package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	appDirName     = "composer-backend"
	configFileName = "config.yml"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "COMPOSER_BACKEND_CONFIG"
)

func defaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:       LogLevelInfo,
			Format:      LogFormatText,
			ShowSource:  true,
			FileEnabled: false,
			FilePath:    "",
		},
		Pkgmgr: PkgmgrConfig{
			MaxConcurrentDownloads: 4,
			CacheDir:               filepath.Join(xdg.CacheHome, appDirName),
			PackagistURL:           "https://packagist.org",
		},
		Backend: BackendConfig{
			Root:         ".",
			ComposerDir:  "composer",
			DispatchMode: DispatchModePriority,
		},
		Environment: EnvironmentConfig{
			PHPBinary:     "php",
			PHPConstraint: ">=5.3.4",
			PHPExtensions: []string{"json", "openssl", "zip"},
			RequireGit:    false,
		},
		SelfUpdate: SelfUpdateConfig{
			URL:      "https://getcomposer.org/composer.phar",
			FreshFor: 30 * 24 * time.Hour,
			Timeout:  2 * time.Minute,
		},
		Server: ServerConfig{
			Addr:   "127.0.0.1:8080",
			Prefix: "/composer",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(xdg.DataHome, appDirName, "state.db"),
		},
		CMS: CMSConfig{
			Package: "contao/core",
			Version: "",
		},
	}
}

// Default returns the built-in configuration without touching the filesystem.
func Default() Config {
	return defaultConfig()
}

func configPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	if xdg.ConfigHome == "" {
		return "", errors.New("resolve config home: empty XDG config dir")
	}
	return filepath.Join(xdg.ConfigHome, appDirName, configFileName), nil
}

func ensureConfigFile(path string) (Config, error) {
	// Defaults are the base; yaml.Unmarshal merges file values over them.
	cfg := defaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cfg, fmt.Errorf("create config dir: %w", err)
		}
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return cfg, fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func Load() (Config, error) {
	p, err := configPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(p)
}

// LoadFrom reads the config at path, creating it with defaults when missing.
func LoadFrom(path string) (Config, error) {
	cfg, err := ensureConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if !IsValidLogLevel(cfg.Log.Level) {
		return fmt.Errorf("invalid log.level %q (must be one of: %v): %w",
			cfg.Log.Level, ValidLogLevels(), ErrInvalidLogLevel)
	}

	if !IsValidLogFormat(cfg.Log.Format) {
		return fmt.Errorf("invalid log.format %q (must be one of: %v): %w",
			cfg.Log.Format, ValidLogFormats(), ErrInvalidLogFormat)
	}

	if !IsValidDispatchMode(cfg.Backend.DispatchMode) {
		return fmt.Errorf("invalid backend.dispatch_mode %q (must be one of: %v): %w",
			cfg.Backend.DispatchMode, ValidDispatchModes(), ErrInvalidDispatchMode)
	}

	if cfg.Pkgmgr.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("invalid pkgmgr.max_concurrent_downloads %d (must be >= 1)",
			cfg.Pkgmgr.MaxConcurrentDownloads)
	}

	if cfg.Backend.ComposerDir == "" {
		return errors.New("backend.composer_dir must not be empty")
	}

	if cfg.Environment.PHPConstraint != "" {
		if _, err := semver.NewConstraint(cfg.Environment.PHPConstraint); err != nil {
			return fmt.Errorf("invalid environment.php_constraint %q: %w",
				cfg.Environment.PHPConstraint, err)
		}
	}

	if cfg.CMS.Version != "" {
		if _, err := semver.NewVersion(cfg.CMS.Version); err != nil {
			return fmt.Errorf("invalid cms.version %q: %w", cfg.CMS.Version, err)
		}
	}

	return nil
}

// ComposerDirAbs returns the absolute composer directory of the backend root.
func (c Config) ComposerDirAbs() (string, error) {
	dir := c.Backend.ComposerDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Backend.Root, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve composer dir: %w", err)
	}
	return abs, nil
}
