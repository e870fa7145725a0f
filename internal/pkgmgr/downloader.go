package pkgmgr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DownloadPackages fetches dist archives into cacheDir through client with
// at most limit downloads in flight. The first failure cancels the rest.
func DownloadPackages(ctx context.Context, client *http.Client, packages []Package, cacheDir string, limit int, logger *log.Logger) error {
	if client == nil {
		client = http.DefaultClient
	}
	if limit < 1 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, pkg := range packages {
		g.Go(func() error {
			if err := downloadPackage(ctx, client, pkg, cacheDir, logger); err != nil {
				return fmt.Errorf("package %s: %w", pkg.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("All packages downloaded", "count", len(packages))
	return nil
}

func cachePathFor(cacheDir string, pkg Package) string {
	return filepath.Join(cacheDir, "files", pkg.Name, pkg.Version, filepath.Base(pkg.Name)+".zip")
}

func downloadPackage(ctx context.Context, client *http.Client, pkg Package, cacheDir string, logger *log.Logger) error {
	cachePath := cachePathFor(cacheDir, pkg)
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if _, err := os.Stat(cachePath); err == nil {
		logger.Debug("Package already cached", "path", cachePath)
		return nil
	}

	if pkg.Dist.URL == "" {
		return fmt.Errorf("no dist url for %s %s", pkg.Name, pkg.Version)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.Dist.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", pkg.Dist.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, pkg.Dist.URL)
	}

	// Write next to the final path so a failed copy never leaves a cached
	// archive behind.
	tmp, err := os.CreateTemp(filepath.Dir(cachePath), ".download-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		return fmt.Errorf("store cache file: %w", err)
	}

	logger.Info("Downloaded", "package", pkg.Name, "version", pkg.Version, "path", cachePath)
	return nil
}
