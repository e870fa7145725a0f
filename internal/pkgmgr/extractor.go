package pkgmgr

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// ExtractPackages unpacks the cached dist of every package into
// vendor/<vendor>/<name>, replacing what was installed there.
func ExtractPackages(ctx context.Context, packages []Package, cacheDir, vendorDir string, logger *log.Logger) error {
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := extractPackage(ctx, cachePathFor(cacheDir, pkg), filepath.Join(vendorDir, pkg.Name))
		if err != nil {
			logger.Error("Failed to extract package", "package", pkg.Name, "error", err)
			return fmt.Errorf("extract %s: %w", pkg.Name, err)
		}
		logger.Info("Extracted package", "package", pkg.Name, "version", pkg.Version, "files", files)
	}
	logger.Info("All packages extracted", "count", len(packages))
	return nil
}

// extractPackage unpacks archive into a staging dir next to dest and swaps
// it in. The previous install stays in place until the swap succeeds.
func extractPackage(ctx context.Context, archive, dest string) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("open dist: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create vendor namespace dir: %w", err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp")
	if err != nil {
		return 0, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	files, err := unzip(ctx, &zr.Reader, staging)
	if err != nil {
		return 0, err
	}

	previous := dest + ".old"
	_ = os.RemoveAll(previous)
	if err := os.Rename(dest, previous); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("move previous install aside: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.Rename(previous, dest)
		return 0, fmt.Errorf("move %s into place: %w", filepath.Base(dest), err)
	}
	_ = os.RemoveAll(previous)
	return files, nil
}

// unzip writes the entries of zr below dir, dropping the wrapper directory
// dists put around their files. It returns the number of files written.
func unzip(ctx context.Context, zr *zip.Reader, dir string) (int, error) {
	strip := computeCommonPrefix(zr.File)
	files := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		rel := strings.TrimPrefix(f.Name, strip)
		if rel == "" {
			continue
		}
		target, err := safeJoin(dir, rel)
		if err != nil {
			return 0, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return 0, err
			}
			continue
		}
		if err := writeZipEntry(f, target); err != nil {
			return 0, fmt.Errorf("%s: %w", f.Name, err)
		}
		files++
	}
	return files, nil
}

// safeJoin rejects entries that would land outside dir.
func safeJoin(dir, rel string) (string, error) {
	target := filepath.Join(dir, rel)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal path %q in archive", rel)
	}
	return target, nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// computeCommonPrefix returns the single top-level directory shared by all
// zip entries, as dist archives wrap their files in one. Archives with
// files at the top level or several roots return "".
func computeCommonPrefix(files []*zip.File) string {
	var root string
	for _, file := range files {
		if file.Name == "" {
			continue
		}
		first, _, nested := strings.Cut(file.Name, "/")
		if !nested {
			// A file at the top level; nothing can be stripped.
			return ""
		}
		if root == "" {
			root = first
		} else if first != root {
			return ""
		}
	}
	if root == "" {
		return ""
	}
	return root + "/"
}
