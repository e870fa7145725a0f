package pkgmgr

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// InstalledRepository is the view of vendor/composer/installed.json.
type InstalledRepository struct {
	path     string
	packages []Package
}

func installedPath(vendorDir string) string {
	return filepath.Join(vendorDir, "composer", "installed.json")
}

// LoadInstalled reads the installed repository of vendorDir. A missing file
// is an empty repository.
func LoadInstalled(vendorDir string) (*InstalledRepository, error) {
	repo := &InstalledRepository{path: installedPath(vendorDir)}
	data, err := os.ReadFile(repo.path)
	if errors.Is(err, os.ErrNotExist) {
		return repo, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read installed.json: %w", err)
	}

	// Composer 2 wraps the list in {"packages": [...]}, Composer 1 does not.
	var wrapped struct {
		Packages []Package `json:"packages"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		repo.packages = wrapped.Packages
	} else if err := json.Unmarshal(data, &repo.packages); err != nil {
		return nil, fmt.Errorf("parse installed.json: %w", err)
	}
	sortByName(repo.packages)
	return repo, nil
}

// Packages returns the installed packages sorted by name.
func (r *InstalledRepository) Packages() []Package {
	return append([]Package(nil), r.packages...)
}

// Find returns the installed package called name.
func (r *InstalledRepository) Find(name string) (Package, bool) {
	for _, p := range r.packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// Replace swaps the installed set and persists it.
func (r *InstalledRepository) Replace(packages []Package) error {
	stamp := time.Now().UTC().Format(time.RFC3339)
	next := make([]Package, len(packages))
	for i, p := range packages {
		if p.Time == "" {
			p.Time = stamp
		}
		next[i] = p
	}
	sortByName(next)

	data, err := json.MarshalIndent(struct {
		Packages []Package `json:"packages"`
	}{next}, "", "    ")
	if err != nil {
		return fmt.Errorf("encode installed.json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create installed.json dir: %w", err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return err
	}
	r.packages = next
	return nil
}
