// Package selfupdate downloads and installs composer.phar.
package selfupdate

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/notice"
)

// ArtifactName is the file the routine installs inside the composer dir.
const ArtifactName = "composer.phar"

// Source is the diagnostic source recorded on failure.
const Source = "selfupdate.Install"

// MsgUpdated is the confirmation shown after a successful install.
const MsgUpdated = "Composer has been updated."

const maxArtifactBytes = 64 << 20

var (
	osRename     = os.Rename
	osCreateTemp = os.CreateTemp
)

// FreshnessRecorder persists the deadline after which the installed
// artifact counts as stale.
type FreshnessRecorder interface {
	SetFreshUntil(ctx context.Context, deadline time.Time) error
}

// Updater installs the artifact into a composer directory.
type Updater struct {
	cfg    config.SelfUpdateConfig
	target string
	fresh  FreshnessRecorder
	client *http.Client
	logger *log.Logger
	now    func() time.Time
}

// New returns an updater installing into composerDir. fresh may be nil.
func New(cfg config.SelfUpdateConfig, composerDir string, fresh FreshnessRecorder, logger *log.Logger) *Updater {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Updater{
		cfg:    cfg,
		target: filepath.Join(composerDir, ArtifactName),
		fresh:  fresh,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Target is the installed artifact path.
func (u *Updater) Target() string { return u.target }

// Installed reports whether the artifact is present.
func (u *Updater) Installed() bool {
	info, err := os.Stat(u.target)
	return err == nil && info.Mode().IsRegular()
}

// Install replaces the artifact and records the outcome in n. On success
// earlier errors in n are cleared and one confirmation is added. On failure
// one error is added, one diagnostic is logged and the previous artifact, if
// any, stays untouched.
func (u *Updater) Install(ctx context.Context, n *notice.Notices) error {
	size, err := u.install(ctx)
	if err != nil {
		u.logger.Error(err.Error(), "source", Source)
		n.Error(err.Error())
		return err
	}

	n.ClearErrors()
	n.Confirm(MsgUpdated)
	u.logger.Info("Installed composer.phar", "path", u.target, "size", humanize.Bytes(uint64(size)))

	if u.fresh != nil && u.cfg.FreshFor > 0 {
		if err := u.fresh.SetFreshUntil(ctx, u.now().Add(u.cfg.FreshFor)); err != nil {
			u.logger.Warn("Failed to record composer freshness", "error", err)
		}
	}
	return nil
}

func (u *Updater) install(ctx context.Context) (int64, error) {
	if u.cfg.URL == "" {
		return 0, errors.New("no self-update url configured")
	}
	if err := os.MkdirAll(filepath.Dir(u.target), 0o755); err != nil {
		return 0, fmt.Errorf("create composer dir: %w", err)
	}

	var expected string
	if u.cfg.ChecksumURL != "" {
		sum, err := u.fetchChecksum(ctx)
		if err != nil {
			return 0, err
		}
		expected = sum
	}

	tmp, err := osCreateTemp(filepath.Dir(u.target), ArtifactName+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	size, actual, err := u.download(ctx, tmp)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, fmt.Errorf("download %s: empty response", u.cfg.URL)
	}
	if expected != "" && !strings.EqualFold(expected, actual) {
		return 0, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", u.cfg.URL, expected, actual)
	}

	if err := os.Chmod(tmpName, 0o755); err != nil {
		return 0, fmt.Errorf("chmod composer.phar: %w", err)
	}
	if err := osRename(tmpName, u.target); err != nil {
		return 0, fmt.Errorf("install composer.phar: %w", err)
	}
	return size, nil
}

func (u *Updater) download(ctx context.Context, dest io.Writer) (int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.URL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("download %s: %w", u.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("download %s: unexpected status %s", u.cfg.URL, resp.Status)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(dest, hasher), io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return 0, "", fmt.Errorf("download %s: %w", u.cfg.URL, err)
	}
	if n > maxArtifactBytes {
		return 0, "", fmt.Errorf("download %s: artifact exceeds %s", u.cfg.URL, humanize.Bytes(maxArtifactBytes))
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// fetchChecksum reads a sha256 file: the first field of the first
// non-empty line.
func (u *Updater) fetchChecksum(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.cfg.ChecksumURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch checksum: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch checksum %s: unexpected status %s", u.cfg.ChecksumURL, resp.Status)
	}

	sc := bufio.NewScanner(io.LimitReader(resp.Body, 4096))
	for sc.Scan() {
		if fields := strings.Fields(sc.Text()); len(fields) > 0 {
			return fields[0], nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read checksum: %w", err)
	}
	return "", fmt.Errorf("checksum file %s is empty", u.cfg.ChecksumURL)
}
