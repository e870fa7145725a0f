package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFreshness struct {
	deadline time.Time
	ok       bool
	err      error
}

func (f fakeFreshness) FreshUntil(context.Context) (time.Time, bool, error) {
	return f.deadline, f.ok, f.err
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.Root = t.TempDir()
	cfg.Pkgmgr.CacheDir = filepath.Join(t.TempDir(), "cache")
	return cfg
}

func newBootstrapper(cfg config.Config, fresh FreshnessSource) *Bootstrapper {
	b := New(cfg, fresh, log.New(io.Discard))
	b.now = func() time.Time { return now }
	return b
}

func TestLoadCreatesProject(t *testing.T) {
	cfg := testConfig(t)
	b := newBootstrapper(cfg, fakeFreshness{deadline: now.Add(time.Hour), ok: true})

	collab, n, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, n.Empty(), "fresh artifact produces no warning")

	assert.Equal(t, filepath.Join("composer", "composer.json"), collab.ConfigPath)
	assert.NotNil(t, collab.IO)
	require.NotNil(t, collab.Composer)
	assert.Equal(t, "local/website", collab.Composer.Package().Name)
	assert.False(t, collab.Composer.Package().Migrated())
	assert.FileExists(t, filepath.Join(cfg.Backend.Root, "composer", "composer.json"))
	assert.Contains(t, pkgmgr.RegisteredDrivers(), "composer")
}

func TestLoadFreshnessWarning(t *testing.T) {
	tests := []struct {
		name  string
		fresh FreshnessSource
		want  string
	}{
		{name: "no store", fresh: nil, want: MsgUpdateRequired},
		{name: "absent", fresh: fakeFreshness{}, want: MsgUpdateRequired},
		{name: "read error", fresh: fakeFreshness{err: errors.New("locked")}, want: MsgUpdateRequired},
		{name: "expired", fresh: fakeFreshness{deadline: now.Add(-72 * time.Hour), ok: true}, want: "3 days ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBootstrapper(testConfig(t), tt.fresh)
			_, n, err := b.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, n.Errors, 1)
			assert.Contains(t, n.Errors[0], tt.want)
		})
	}
}

func TestLoadPropagatesErrors(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Backend.Root, "composer")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"), []byte("{broken"), 0o644))

	_, _, err := newBootstrapper(cfg, fakeFreshness{ok: true, deadline: now.Add(time.Hour)}).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load composer")
}

func TestSyncCMSVersion(t *testing.T) {
	cfg := testConfig(t)
	cfg.CMS.Version = "3.5.40"
	b := newBootstrapper(cfg, fakeFreshness{ok: true, deadline: now.Add(time.Hour)})

	collab, _, err := b.Load(context.Background())
	require.NoError(t, err)

	changed, err := b.SyncCMSVersion(collab)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, collab.IO.Output(), "contao/core 3.5.40")

	reloaded, err := pkgmgr.LoadRootPackage(filepath.Join(cfg.Backend.Root, collab.ConfigPath))
	require.NoError(t, err)
	assert.Equal(t, "3.5.40", reloaded.Provide["contao/core"])

	changed, err = b.SyncCMSVersion(collab)
	require.NoError(t, err)
	assert.False(t, changed, "second sync is a no-op")

	cfg.CMS.Version = ""
	changed, err = newBootstrapper(cfg, nil).SyncCMSVersion(collab)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestBufferConcurrentWrites(t *testing.T) {
	var buf Buffer
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf.WriteString("x")
		}()
	}
	wg.Wait()
	assert.Equal(t, strings.Repeat("x", 8), buf.Output())
}

func TestLoadIgnoresWorkingDirectoryChanges(t *testing.T) {
	site := t.TempDir()
	t.Chdir(site)
	cfg := config.Default()
	cfg.Backend.Root = "."
	cfg.Pkgmgr.CacheDir = filepath.Join(t.TempDir(), "cache")
	b := newBootstrapper(cfg, fakeFreshness{deadline: now.Add(time.Hour), ok: true})

	collab, _, err := b.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, collab.Composer.Package().SetMigrated(true))
	require.NoError(t, collab.Composer.Package().Save())

	// An update handler runs from inside the composer dir.
	t.Chdir(filepath.Join(site, "composer"))

	collab, _, err = b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, collab.Composer.Package().Migrated())
	assert.Equal(t, realpath(t, filepath.Join(site, "composer")), realpath(t, collab.Composer.Dir()))
	assert.NoDirExists(t, filepath.Join(site, "composer", "composer"))
}

func realpath(t *testing.T, dir string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return resolved
}
