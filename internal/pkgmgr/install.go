// internal/pkgmgr/install.go
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
)

// ErrUnresolvable is returned when the requirements cannot be satisfied.
// Nothing is written to vendor/ in that case.
var ErrUnresolvable = errors.New("requirements could not be resolved")

// OptionsFromConfig maps the pkgmgr config section onto Options.
func OptionsFromConfig(cfg config.Config, logger *log.Logger) Options {
	return Options{
		CacheDir:               cfg.Pkgmgr.CacheDir,
		PackagistURL:           cfg.Pkgmgr.PackagistURL,
		MaxConcurrentDownloads: cfg.Pkgmgr.MaxConcurrentDownloads,
		Logger:                 logger,
	}
}

// RunInstall installs the project found from the current working directory.
func RunInstall(ctx context.Context, logger *log.Logger, cfg config.Config) error {
	composerPath, err := FindComposerJSON(".")
	if err != nil {
		return fmt.Errorf("find composer.json: %w", err)
	}
	logger.Info("Found composer.json", "path", composerPath)

	RegisterDefaultDrivers()
	composer, err := Load(filepath.Dir(composerPath), OptionsFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	res, err := composer.Install(ctx)
	if err != nil {
		for _, p := range res.Problems {
			logger.Error("Unresolvable requirement", "problem", p)
		}
		return err
	}
	return nil
}

func install(ctx context.Context, root *RootPackage, installed *InstalledRepository, dir string, opts Options) (Resolution, error) {
	logger := opts.Logger

	vendorDir := filepath.Join(dir, "vendor")
	if err := os.MkdirAll(vendorDir, 0o755); err != nil {
		return Resolution{}, fmt.Errorf("create vendor dir: %w", err)
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return Resolution{}, fmt.Errorf("create cache dir: %w", err)
	}

	resolver, err := NewResolver(root.ComposerJSON, opts.PackagistURL, opts.HTTPClient, logger)
	if err != nil {
		return Resolution{}, fmt.Errorf("create resolver: %w", err)
	}
	res, err := resolver.Resolve(ctx, root.Require)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve packages: %w", err)
	}
	if !res.OK() {
		return res, fmt.Errorf("%w: %s", ErrUnresolvable, strings.Join(res.Problems, "; "))
	}

	if err := DownloadPackages(ctx, opts.HTTPClient, res.Packages, opts.CacheDir, opts.MaxConcurrentDownloads, logger); err != nil {
		return res, fmt.Errorf("download packages: %w", err)
	}

	if err := ExtractPackages(ctx, res.Packages, opts.CacheDir, vendorDir, logger); err != nil {
		return res, fmt.Errorf("extract packages: %w", err)
	}

	keep := map[string]bool{}
	for _, p := range res.Packages {
		keep[p.Name] = true
	}
	for _, p := range installed.Packages() {
		if keep[p.Name] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(vendorDir, p.Name)); err != nil {
			return res, fmt.Errorf("remove %s: %w", p.Name, err)
		}
		logger.Info("Removed package", "package", p.Name, "version", p.Version)
	}

	if err := installed.Replace(res.Packages); err != nil {
		return res, fmt.Errorf("write installed repository: %w", err)
	}

	if err := GenerateAutoloader(ctx, root.Autoload, res.Packages, vendorDir, logger); err != nil {
		return res, fmt.Errorf("generate autoloader: %w", err)
	}

	logger.Info("Installation complete", "vendor_dir", vendorDir)
	return res, nil
}
