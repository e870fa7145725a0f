// Package bootstrap builds the collaborators every backend action shares:
// the composer.json path, the output buffer and the loaded project.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/notice"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

// MsgUpdateRequired warns that composer.phar is older than its freshness window.
const MsgUpdateRequired = "Composer update required"

// Collaborators are handed to exactly one action per request.
type Collaborators struct {
	ConfigPath string
	IO         *Buffer
	Composer   *pkgmgr.Composer
}

// FreshnessSource reads the recorded freshness deadline of composer.phar.
type FreshnessSource interface {
	FreshUntil(ctx context.Context) (time.Time, bool, error)
}

// Bootstrapper loads the project for a request.
type Bootstrapper struct {
	cfg    config.Config
	dir    string
	dirErr error
	fresh  FreshnessSource
	logger *log.Logger
	now    func() time.Time
}

// New resolves the composer directory once. Handlers change the working
// directory while other requests load, so it is never re-resolved per
// request.
func New(cfg config.Config, fresh FreshnessSource, logger *log.Logger) *Bootstrapper {
	if logger == nil {
		logger = log.Default()
	}
	dir, err := cfg.ComposerDirAbs()
	return &Bootstrapper{cfg: cfg, dir: dir, dirErr: err, fresh: fresh, logger: logger, now: time.Now}
}

// defaultProject is written when the composer dir has no composer.json yet.
func defaultProject() pkgmgr.ComposerJSON {
	return pkgmgr.ComposerJSON{
		Name:             "local/website",
		Description:      "A local website project",
		Type:             "project",
		License:          pkgmgr.StringOrArray{"proprietary"},
		MinimumStability: "dev",
		PreferStable:     true,
		Require:          map[string]string{},
	}
}

// Load returns the collaborators for one request and any warning to show.
// composer.phar must already be installed.
func (b *Bootstrapper) Load(ctx context.Context) (Collaborators, notice.Notices, error) {
	var n notice.Notices
	b.checkFreshness(ctx, &n)

	pkgmgr.RegisterDefaultDrivers()

	if b.dirErr != nil {
		return Collaborators{}, n, b.dirErr
	}
	dir := b.dir
	if err := pkgmgr.EnsureProject(dir, defaultProject()); err != nil {
		return Collaborators{}, n, fmt.Errorf("prepare project: %w", err)
	}

	buf := &Buffer{}
	composer, err := pkgmgr.Load(dir, pkgmgr.OptionsFromConfig(b.cfg, bufferLogger(buf)))
	if err != nil {
		return Collaborators{}, n, fmt.Errorf("load composer: %w", err)
	}

	b.logger.Debug("Loaded composer project", "dir", dir, "installed", len(composer.Installed().Packages()))
	return Collaborators{
		ConfigPath: filepath.Join(b.cfg.Backend.ComposerDir, "composer.json"),
		IO:         buf,
		Composer:   composer,
	}, n, nil
}

func (b *Bootstrapper) checkFreshness(ctx context.Context, n *notice.Notices) {
	if b.fresh == nil {
		n.Error(MsgUpdateRequired)
		return
	}
	deadline, ok, err := b.fresh.FreshUntil(ctx)
	if err != nil {
		b.logger.Warn("Failed to read composer freshness", "error", err)
	}
	switch {
	case !ok:
		n.Error(MsgUpdateRequired)
	case b.now().After(deadline):
		n.Error(fmt.Sprintf("%s (outdated since %s)", MsgUpdateRequired, humanize.RelTime(deadline, b.now(), "ago", "from now")))
	}
}

// bufferLogger sends package-manager progress to the request buffer.
func bufferLogger(buf *Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{
		Level:     log.InfoLevel,
		Formatter: log.TextFormatter,
	})
}

// SyncCMSVersion makes the root package provide the configured CMS version.
// It reports whether composer.json changed; the change is written to the
// output buffer so the next page can show it.
func (b *Bootstrapper) SyncCMSVersion(c Collaborators) (bool, error) {
	name, version := b.cfg.CMS.Package, b.cfg.CMS.Version
	if name == "" || version == "" {
		return false, nil
	}
	root := c.Composer.Package()
	previous := root.Provide[name]
	if previous == version {
		return false, nil
	}
	if err := root.SetProvide(name, version); err != nil {
		return false, err
	}
	if err := root.Save(); err != nil {
		return false, fmt.Errorf("save composer.json: %w", err)
	}

	if previous == "" {
		c.IO.WriteString(fmt.Sprintf("Registered %s %s as provided by the project.\n", name, version))
	} else {
		c.IO.WriteString(fmt.Sprintf("Updated provided %s from %s to %s.\n", name, previous, version))
	}
	b.logger.Info("Synchronised CMS version", "package", name, "from", previous, "to", version)
	return true, nil
}
