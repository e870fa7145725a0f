package pkgmgr

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
)

func RunDumpAutoload(ctx context.Context, logger *log.Logger, cfg config.Config) error {
	composerPath, err := FindComposerJSON(".")
	if err != nil {
		return fmt.Errorf("find composer.json: %w", err)
	}

	composer, err := ParseComposerJSON(composerPath)
	if err != nil {
		return fmt.Errorf("parse composer.json: %w", err)
	}

	vendorDir := filepath.Join(filepath.Dir(composerPath), "vendor")
	installed, err := LoadInstalled(vendorDir)
	if err != nil {
		return fmt.Errorf("load installed packages: %w", err)
	}

	logger.Info("Generating autoloader", "vendor_dir", vendorDir)
	if err := GenerateAutoloader(ctx, composer.Autoload, installed.Packages(), vendorDir, logger); err != nil {
		return fmt.Errorf("generate autoloader: %w", err)
	}

	logger.Info("Autoloader generated successfully")
	return nil
}

var (
	namespaceRE = regexp.MustCompile(`(?m)^\s*namespace\s+([A-Za-z0-9_\\]+)\s*[;{]`)
	classRE     = regexp.MustCompile(`(?m)^\s*(?:abstract\s+|final\s+)*(?:class|interface|trait)\s+([A-Za-z0-9_]+)`)
)

// autoloadMaps collects the merged autoload rules with paths relative to
// the vendor directory's parent.
type autoloadMaps struct {
	psr4     map[string][]string
	psr0     map[string][]string
	classmap map[string]string
	files    []string
}

// GenerateAutoloader writes vendor/autoload.php covering the root package and
// every installed package. Classmap entries are found by scanning PHP sources.
func GenerateAutoloader(ctx context.Context, root Autoload, packages []Package, vendorDir string, logger *log.Logger) error {
	maps := autoloadMaps{
		psr4:     map[string][]string{},
		psr0:     map[string][]string{},
		classmap: map[string]string{},
	}
	baseDir := filepath.Dir(vendorDir)

	add := func(autoload Autoload, dir string) error {
		for ns, paths := range autoload.PSR4 {
			for _, p := range paths {
				maps.psr4[ns] = append(maps.psr4[ns], filepath.ToSlash(filepath.Join(dir, p)))
			}
		}
		for ns, paths := range autoload.PSR0 {
			for _, p := range paths {
				maps.psr0[ns] = append(maps.psr0[ns], filepath.ToSlash(filepath.Join(dir, p)))
			}
		}
		for _, p := range autoload.Files {
			maps.files = append(maps.files, filepath.ToSlash(filepath.Join(dir, p)))
		}
		for _, p := range autoload.Classmap {
			if err := scanClassmap(ctx, baseDir, filepath.Join(dir, p), maps.classmap); err != nil {
				return err
			}
		}
		return nil
	}

	if err := add(root, "."); err != nil {
		return err
	}
	for _, pkg := range packages {
		if err := add(pkg.Autoload, filepath.Join("vendor", pkg.Name)); err != nil {
			return err
		}
	}

	logger.Info("Generating autoloader",
		"psr4_count", len(maps.psr4), "psr0_count", len(maps.psr0),
		"classmap_count", len(maps.classmap), "files_count", len(maps.files))

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.MkdirAll(vendorDir, 0o755); err != nil {
		return fmt.Errorf("create vendor dir: %w", err)
	}
	return writeFileAtomic(filepath.Join(vendorDir, "autoload.php"), []byte(maps.render()))
}

func scanClassmap(ctx context.Context, baseDir, rel string, into map[string]string) error {
	start := filepath.Join(baseDir, rel)
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".php") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		ns := ""
		if m := namespaceRE.FindSubmatch(data); m != nil {
			ns = string(m[1]) + `\`
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		for _, m := range classRE.FindAllSubmatch(data, -1) {
			into[ns+string(m[1])] = filepath.ToSlash(relPath)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan classmap %s: %w", rel, err)
	}
	return nil
}

func phpString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func phpPaths(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "$baseDir . " + phpString("/"+strings.TrimPrefix(p, "./"))
	}
	return "array(" + strings.Join(quoted, ", ") + ")"
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m autoloadMaps) render() string {
	var b strings.Builder
	b.WriteString("<?php\n\n// autoload.php @generated by composer-backend\n\n")
	b.WriteString("$baseDir = dirname(__DIR__);\n\n")

	b.WriteString("$psr4 = array(\n")
	for _, ns := range sortedMapKeys(m.psr4) {
		fmt.Fprintf(&b, "    %s => %s,\n", phpString(ns), phpPaths(m.psr4[ns]))
	}
	b.WriteString(");\n\n$psr0 = array(\n")
	for _, ns := range sortedMapKeys(m.psr0) {
		fmt.Fprintf(&b, "    %s => %s,\n", phpString(ns), phpPaths(m.psr0[ns]))
	}
	b.WriteString(");\n\n$classmap = array(\n")
	for _, class := range sortedMapKeys(m.classmap) {
		fmt.Fprintf(&b, "    %s => $baseDir . %s,\n", phpString(class), phpString("/"+m.classmap[class]))
	}
	b.WriteString(");\n\n")

	b.WriteString(`spl_autoload_register(function ($class) use ($psr4, $psr0, $classmap) {
    if (isset($classmap[$class])) {
        require $classmap[$class];
        return;
    }
    foreach ($psr4 as $prefix => $dirs) {
        if (strpos($class, $prefix) !== 0) {
            continue;
        }
        $relative = str_replace('\\', '/', substr($class, strlen($prefix))) . '.php';
        foreach ($dirs as $dir) {
            if (is_file($dir . '/' . $relative)) {
                require $dir . '/' . $relative;
                return;
            }
        }
    }
    foreach ($psr0 as $prefix => $dirs) {
        if ($prefix !== '' && strpos($class, $prefix) !== 0) {
            continue;
        }
        $relative = str_replace(array('\\', '_'), '/', $class) . '.php';
        foreach ($dirs as $dir) {
            if (is_file($dir . '/' . $relative)) {
                require $dir . '/' . $relative;
                return;
            }
        }
    }
});
`)

	for _, f := range m.files {
		fmt.Fprintf(&b, "\nrequire_once $baseDir . %s;", phpString("/"+strings.TrimPrefix(f, "./")))
	}
	b.WriteString("\n")
	return b.String()
}
