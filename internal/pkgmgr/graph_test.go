package pkgmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraph(t *testing.T) {
	vendor := t.TempDir()
	installed, err := LoadInstalled(vendor)
	require.NoError(t, err)
	require.NoError(t, installed.Replace([]Package{
		{Name: "acme/app", Version: "1.0.0", Require: map[string]string{"acme/lib": "^2.0", "php": ">=7.0"}},
		{Name: "acme/lib", Version: "2.1.0", Require: map[string]string{"acme/app": "^1.0", "acme/gone": "*"}},
	}))

	root, err := parseRootPackage("composer.json", []byte(`{
		"require": {"acme/app": "^1.0", "contao/core": "~3.5"},
		"provide": {"contao/core": "3.5.40"}
	}`))
	require.NoError(t, err)

	nodes := DependencyGraph(root, installed)
	require.Len(t, nodes, 2)

	app := nodes[0]
	assert.Equal(t, "acme/app", app.Name)
	assert.Equal(t, "1.0.0", app.Version)
	require.Len(t, app.Children, 2)

	lib := app.Children[0]
	assert.Equal(t, "acme/lib", lib.Name)
	assert.Equal(t, "^2.0", lib.Constraint)
	require.Len(t, lib.Children, 2)
	assert.True(t, lib.Children[0].Cycle, "acme/app is already on the path")
	assert.True(t, lib.Children[1].Missing)
	assert.True(t, app.Children[1].Platform)

	cms := nodes[1]
	assert.Equal(t, "3.5.40", cms.Version)
	assert.Empty(t, cms.Children)

	assert.Equal(t, []string{"acme/lib"}, Dependents(installed, "acme/gone"))
	assert.Empty(t, Dependents(installed, "nobody/else"))
}

func TestClearCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files", "acme", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "acme", "lib", "lib.zip"), make([]byte, 1024), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repo.json"), make([]byte, 24), 0o644))

	freed, err := ClearCache(dir)
	require.NoError(t, err)
	assert.EqualValues(t, 1048, freed)
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	freed, err = ClearCache(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, freed)

	_, err = ClearCache("")
	assert.Error(t, err)
}
