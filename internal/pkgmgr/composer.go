package pkgmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Options configure a Composer instance.
type Options struct {
	CacheDir               string
	PackagistURL           string
	MaxConcurrentDownloads int
	HTTPClient             *http.Client
	Logger                 *log.Logger
}

// Composer is a loaded project: root package, installed repository and the
// settings needed to resolve and install. It is built once per request.
type Composer struct {
	dir       string
	root      *RootPackage
	installed *InstalledRepository
	opts      Options
}

// Load reads the project whose composer.json lives in dir.
func Load(dir string, opts Options) (*Composer, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.MaxConcurrentDownloads < 1 {
		opts.MaxConcurrentDownloads = 1
	}

	root, err := LoadRootPackage(filepath.Join(dir, "composer.json"))
	if err != nil {
		return nil, err
	}
	if root.Config.CacheDir != "" {
		cacheDir := root.Config.CacheDir
		if !filepath.IsAbs(cacheDir) {
			cacheDir = filepath.Join(dir, cacheDir)
		}
		opts.CacheDir = cacheDir
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(dir, "cache")
	}

	installed, err := LoadInstalled(filepath.Join(dir, "vendor"))
	if err != nil {
		return nil, err
	}

	return &Composer{dir: dir, root: root, installed: installed, opts: opts}, nil
}

// EnsureProject writes a minimal composer.json into dir when none exists.
func EnsureProject(dir string, initial ComposerJSON) error {
	path := filepath.Join(dir, "composer.json")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create composer dir: %w", err)
	}
	data, err := json.Marshal(initial)
	if err != nil {
		return fmt.Errorf("encode composer.json: %w", err)
	}
	root, err := parseRootPackage(path, data)
	if err != nil {
		return err
	}
	if initial.Autoload.empty() {
		delete(root.raw, "autoload")
	}
	if initial.Config == (Config{}) {
		delete(root.raw, "config")
	}
	return root.Save()
}

func (c *Composer) Dir() string                     { return c.dir }
func (c *Composer) VendorDir() string               { return filepath.Join(c.dir, "vendor") }
func (c *Composer) CacheDir() string                { return c.opts.CacheDir }
func (c *Composer) Logger() *log.Logger             { return c.opts.Logger }
func (c *Composer) Package() *RootPackage           { return c.root }
func (c *Composer) Installed() *InstalledRepository { return c.installed }

// NewResolver returns a resolver over the project's repositories.
func (c *Composer) NewResolver() (*Resolver, error) {
	return NewResolver(c.root.ComposerJSON, c.opts.PackagistURL, c.opts.HTTPClient, c.opts.Logger)
}

// Resolve resolves require against the project's repositories.
func (c *Composer) Resolve(ctx context.Context, require map[string]string) (Resolution, error) {
	resolver, err := c.NewResolver()
	if err != nil {
		return Resolution{}, err
	}
	return resolver.Resolve(ctx, require)
}

// Install resolves the root requirements and installs them into vendor/.
func (c *Composer) Install(ctx context.Context) (Resolution, error) {
	return install(ctx, c.root, c.installed, c.dir, c.opts)
}

// ClearCache removes the download cache and reports the bytes freed.
func (c *Composer) ClearCache() (int64, error) {
	return ClearCache(c.opts.CacheDir)
}
