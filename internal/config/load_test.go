package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, cfg.Log.Level)
	assert.Equal(t, DispatchModePriority, cfg.Backend.DispatchMode)
	assert.Equal(t, "composer", cfg.Backend.ComposerDir)
	assert.FileExists(t, path)

	again, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SelfUpdate.FreshFor, again.SelfUpdate.FreshFor)
}

func TestLoadFromMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := []byte("log:\n  level: debug\nbackend:\n  dispatch_mode: legacy\nselfupdate:\n  fresh_for: 48h\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, cfg.Log.Level)
	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Equal(t, DispatchModeLegacy, cfg.Backend.DispatchMode)
	assert.Equal(t, 48*time.Hour, cfg.SelfUpdate.FreshFor)
	assert.Equal(t, "https://getcomposer.org/composer.phar", cfg.SelfUpdate.URL)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"level":    {"log:\n  level: loud\n", ErrInvalidLogLevel},
		"format":   {"log:\n  format: xml\n", ErrInvalidLogFormat},
		"dispatch": {"backend:\n  dispatch_mode: random\n", ErrInvalidDispatchMode},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))

			_, err := LoadFrom(path)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadFromRejectsBadConstraint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("environment:\n  php_constraint: \"not a constraint\"\n"), 0o644))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "php_constraint")
}

func TestComposerDirAbs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Backend.Root = root

	dir, err := cfg.ComposerDirAbs()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "composer"), dir)

	cfg.Backend.ComposerDir = "/opt/composer"
	dir, err = cfg.ComposerDirAbs()
	require.NoError(t, err)
	assert.Equal(t, "/opt/composer", dir)
}

func TestNewLoggerWritesToExtraWriter(t *testing.T) {
	var sink bytesSink
	cfg := Default()
	cfg.Log.ShowSource = false

	handle, err := NewLogger(cfg, &sink)
	require.NoError(t, err)
	defer func() { _ = handle.Closer() }()

	handle.Logger.Info("hello", "key", "value")
	assert.Contains(t, string(sink), "hello")
	assert.Contains(t, string(sink), "key=value")
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"

	_, err := NewLogger(cfg)
	require.ErrorIs(t, err, ErrInvalidLogFormat)
}

type bytesSink []byte

func (b *bytesSink) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
