package pkgmgr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrComposerJSONNotFound is returned when no composer.json exists up the tree.
var ErrComposerJSONNotFound = errors.New("composer.json not found")

func FindComposerJSON(dir string) (string, error) {
	for {
		path := filepath.Join(dir, "composer.json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrComposerJSONNotFound
		}
		dir = parent
	}
}

func ParseComposerJSON(path string) (ComposerJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ComposerJSON{}, fmt.Errorf("read composer.json: %w", err)
	}

	var composer ComposerJSON
	if err := json.Unmarshal(data, &composer); err != nil {
		return ComposerJSON{}, fmt.Errorf("parse composer.json: %w", err)
	}

	return composer, nil
}

// RootPackage is the project manifest. Mutations go through setters so that
// keys the typed view does not know about are written back untouched.
type RootPackage struct {
	ComposerJSON
	path string
	raw  map[string]json.RawMessage
}

// LoadRootPackage reads the manifest at path.
func LoadRootPackage(path string) (*RootPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read composer.json: %w", err)
	}
	return parseRootPackage(path, data)
}

func parseRootPackage(path string, data []byte) (*RootPackage, error) {
	root := &RootPackage{path: path, raw: map[string]json.RawMessage{}}
	if err := json.Unmarshal(data, &root.ComposerJSON); err != nil {
		return nil, fmt.Errorf("parse composer.json: %w", err)
	}
	if err := json.Unmarshal(data, &root.raw); err != nil {
		return nil, fmt.Errorf("parse composer.json: %w", err)
	}
	if root.Require == nil {
		root.Require = map[string]string{}
	}
	if root.Extra == nil {
		root.Extra = map[string]any{}
	}
	return root, nil
}

// Path is the manifest location on disk.
func (r *RootPackage) Path() string { return r.path }

// Migrated reports whether extra.contao.migrated is true.
func (r *RootPackage) Migrated() bool {
	contao, ok := r.Extra["contao"].(map[string]any)
	if !ok {
		return false
	}
	migrated, ok := contao["migrated"].(bool)
	return ok && migrated
}

// ContaoExtra returns extra.contao, creating it when absent.
func (r *RootPackage) ContaoExtra() map[string]any {
	contao, ok := r.Extra["contao"].(map[string]any)
	if !ok {
		contao = map[string]any{}
		r.Extra["contao"] = contao
	}
	return contao
}

func (r *RootPackage) SetMigrated(migrated bool) error {
	r.ContaoExtra()["migrated"] = migrated
	return r.set("extra", r.Extra)
}

func (r *RootPackage) SetExtra(extra map[string]any) error {
	r.Extra = extra
	return r.set("extra", extra)
}

func (r *RootPackage) SetRequire(name, constraint string) error {
	r.Require[name] = constraint
	return r.set("require", r.Require)
}

func (r *RootPackage) RemoveRequire(name string) error {
	delete(r.Require, name)
	return r.set("require", r.Require)
}

// SetProvide declares that the project itself provides name at version.
func (r *RootPackage) SetProvide(name, version string) error {
	if r.Provide == nil {
		r.Provide = map[string]string{}
	}
	r.Provide[name] = version
	return r.set("provide", r.Provide)
}

func (r *RootPackage) SetMinimumStability(stability string) error {
	r.MinimumStability = stability
	if stability == "" {
		delete(r.raw, "minimum-stability")
		return nil
	}
	return r.set("minimum-stability", stability)
}

func (r *RootPackage) SetPreferStable(prefer bool) error {
	r.PreferStable = prefer
	return r.set("prefer-stable", prefer)
}

func (r *RootPackage) SetRepositories(repos []Repository) error {
	r.Repositories = repos
	if len(repos) == 0 {
		delete(r.raw, "repositories")
		return nil
	}
	return r.set("repositories", repos)
}

func (r *RootPackage) set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	r.raw[key] = data
	return nil
}

// Bytes renders the manifest the way Composer writes it.
func (r *RootPackage) Bytes() ([]byte, error) {
	data, err := json.Marshal(r.raw)
	if err != nil {
		return nil, fmt.Errorf("encode composer.json: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "    "); err != nil {
		return nil, fmt.Errorf("indent composer.json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Save writes the manifest through a temp file so readers never see a torn write.
func (r *RootPackage) Save() error {
	data, err := r.Bytes()
	if err != nil {
		return err
	}
	return writeFileAtomic(r.path, data)
}

// ReplaceWith validates raw manifest bytes and swaps them in.
func (r *RootPackage) ReplaceWith(data []byte) error {
	next, err := parseRootPackage(r.path, data)
	if err != nil {
		return err
	}
	*r = *next
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
