package pkgmgr

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
    "name": "contao/website",
    "require": {"contao-community-alliance/composer": "~0.8"},
    "scripts": {"post-update-cmd": "Acme\\Hooks::run"},
    "extra": {"contao": {"migrated": false}, "vendor-flag": 1}
}`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "composer.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFindComposerJSONWalksUp(t *testing.T) {
	path := writeManifest(t, "{}")
	nested := filepath.Join(filepath.Dir(path), "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindComposerJSON(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindComposerJSONMissing(t *testing.T) {
	_, err := FindComposerJSON(t.TempDir())
	require.ErrorIs(t, err, ErrComposerJSONNotFound)
}

func TestRootPackageMigratedFlag(t *testing.T) {
	cases := map[string]bool{
		`{}`:                        false,
		`{"extra": {"contao": {}}}`: false,
		`{"extra": {"contao": {"migrated": "yes"}}}`: false,
		`{"extra": {"contao": {"migrated": false}}}`: false,
		`{"extra": {"contao": {"migrated": true}}}`:  true,
		`{"extra": {"contao": true}}`:                false,
	}
	for body, want := range cases {
		root, err := LoadRootPackage(writeManifest(t, body))
		require.NoError(t, err, body)
		assert.Equal(t, want, root.Migrated(), body)
	}
}

func TestRootPackageSavePreservesUnknownKeys(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	root, err := LoadRootPackage(path)
	require.NoError(t, err)

	require.NoError(t, root.SetMigrated(true))
	require.NoError(t, root.SetRequire("acme/news", "^1.0"))
	require.NoError(t, root.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "scripts")
	assert.NotContains(t, raw, "autoload")
	extra := raw["extra"].(map[string]any)
	assert.Equal(t, float64(1), extra["vendor-flag"])
	assert.Equal(t, true, extra["contao"].(map[string]any)["migrated"])
	assert.Equal(t, "^1.0", raw["require"].(map[string]any)["acme/news"])

	reloaded, err := LoadRootPackage(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Migrated())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestRootPackageReplaceWithRejectsInvalidJSON(t *testing.T) {
	root, err := LoadRootPackage(writeManifest(t, sampleManifest))
	require.NoError(t, err)

	require.Error(t, root.ReplaceWith([]byte(`{"require": `)))
	assert.Equal(t, "contao/website", root.Name)

	require.NoError(t, root.ReplaceWith([]byte(`{"name": "x/y"}`)))
	assert.Equal(t, "x/y", root.Name)
	assert.NotNil(t, root.Require)
}

func TestEnsureProjectWritesOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "composer")
	require.NoError(t, EnsureProject(dir, ComposerJSON{Name: "local/website", Require: map[string]string{"a/b": "*"}}))

	root, err := LoadRootPackage(filepath.Join(dir, "composer.json"))
	require.NoError(t, err)
	assert.Equal(t, "local/website", root.Name)

	require.NoError(t, EnsureProject(dir, ComposerJSON{Name: "other/name"}))
	root, err = LoadRootPackage(filepath.Join(dir, "composer.json"))
	require.NoError(t, err)
	assert.Equal(t, "local/website", root.Name)
}
