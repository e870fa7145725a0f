package pkgmgr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ClearCache empties cacheDir and returns the number of bytes removed. The
// directory itself is kept.
func ClearCache(cacheDir string) (int64, error) {
	if cacheDir == "" {
		return 0, errors.New("no cache directory configured")
	}
	var size int64
	err := filepath.WalkDir(cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("measure cache: %w", err)
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(cacheDir, e.Name())); err != nil {
			return 0, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return size, nil
}
