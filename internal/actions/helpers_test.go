package actions

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/bootstrap"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pkgmgr.RegisterDefaultDrivers()
	os.Exit(m.Run())
}

// packagist is a minimal composer repository: every package ships one
// src/<Name>.php file.
type packagist struct {
	versions map[string][]pkgmgr.Package
	search   []pkgmgr.SearchResult
}

func newPackagist() *packagist {
	return &packagist{versions: map[string][]pkgmgr.Package{}}
}

func (p *packagist) add(name, version string, require map[string]string) {
	p.versions[name] = append(p.versions[name], pkgmgr.Package{
		Name: name, Version: version, Require: require, Description: name + " package",
		Dist: pkgmgr.Dist{Type: "zip", URL: "/dist/" + name + "/" + version + ".zip"},
	})
}

func (p *packagist) start(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search.json":
			_ = json.NewEncoder(w).Encode(map[string]any{"results": p.search})
		case strings.HasPrefix(r.URL.Path, "/packages/"):
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/packages/"), ".json")
			versions, ok := p.versions[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			out := map[string]pkgmgr.Package{}
			for _, v := range versions {
				v.Dist.URL = srv.URL + v.Dist.URL
				out[v.Version] = v
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"package": map[string]any{"versions": out}})
		case strings.HasPrefix(r.URL.Path, "/dist/"):
			name := strings.TrimPrefix(r.URL.Path, "/dist/")
			name = name[:strings.LastIndex(name, "/")]
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			f, _ := zw.Create(strings.ReplaceAll(name, "/", "-") + "/src/" + filepath.Base(name) + ".php")
			_, _ = f.Write([]byte("<?php\n"))
			_ = zw.Close()
			_, _ = w.Write(buf.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type project struct {
	dir    string
	cfg    config.Config
	collab bootstrap.Collaborators
	deps   Deps
}

const migratedManifest = `{
    "name": "local/website",
    "require": {"acme/app": "^1.0"},
    "extra": {"contao": {"migrated": true}},
    "custom-key": {"kept": true}
}`

func newProject(t *testing.T, manifest string, installed []pkgmgr.Package, repo *packagist) *project {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "composer")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"), []byte(manifest), 0o644))

	inst, err := pkgmgr.LoadInstalled(filepath.Join(dir, "vendor"))
	require.NoError(t, err)
	if installed != nil {
		require.NoError(t, inst.Replace(installed))
	}

	cfg := config.Default()
	cfg.Backend.Root = root
	cfg.Pkgmgr.CacheDir = filepath.Join(root, "cache")
	if repo != nil {
		cfg.Pkgmgr.PackagistURL = repo.start(t).URL
	} else {
		cfg.Pkgmgr.PackagistURL = "http://127.0.0.1:1"
	}

	buf := &bootstrap.Buffer{}
	opts := pkgmgr.OptionsFromConfig(cfg, log.New(buf))
	composer, err := pkgmgr.Load(dir, opts)
	require.NoError(t, err)

	return &project{
		dir: dir,
		cfg: cfg,
		collab: bootstrap.Collaborators{
			ConfigPath: "composer/composer.json",
			IO:         buf,
			Composer:   composer,
		},
		deps: Deps{Config: cfg, Logger: log.New(io.Discard)},
	}
}

func (p *project) handle(t *testing.T, action backend.Action, req *backend.Request) backend.Output {
	t.Helper()
	out, err := Registry(p.deps)[action](p.collab).Handle(context.Background(), req)
	require.NoError(t, err)
	return out
}

// manifest re-reads composer.json from disk.
func (p *project) manifest(t *testing.T) *pkgmgr.RootPackage {
	t.Helper()
	root, err := pkgmgr.LoadRootPackage(filepath.Join(p.dir, "composer.json"))
	require.NoError(t, err)
	return root
}

func get(query ...string) *backend.Request {
	return &backend.Request{Method: http.MethodGet, Query: values(query...), Form: url.Values{}}
}

func post(query url.Values, form ...string) *backend.Request {
	if query == nil {
		query = url.Values{}
	}
	return &backend.Request{Method: http.MethodPost, Query: query, Form: values(form...)}
}

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}
