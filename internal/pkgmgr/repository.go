package pkgmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ErrPackageNotFound is returned when a repository does not know a package.
var ErrPackageNotFound = errors.New("package not found")

type composerRepository struct {
	baseURL string
	client  *http.Client
}

func newComposerRepository(repo Repository, client *http.Client) (RepositoryDriver, error) {
	if repo.URL == "" {
		return nil, errors.New("composer repository without url")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &composerRepository{baseURL: strings.TrimSuffix(repo.URL, "/"), client: client}, nil
}

func (r *composerRepository) URL() string { return r.baseURL }

func (r *composerRepository) Versions(ctx context.Context, name string) ([]Package, error) {
	endpoint := fmt.Sprintf("%s/packages/%s.json", r.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository lookup %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s in %s: %w", name, r.baseURL, ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository %s returned %s for %s", r.baseURL, resp.Status, name)
	}

	var data struct {
		Package struct {
			Versions map[string]Package `json:"versions"`
		} `json:"package"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode repository response for %s: %w", name, err)
	}

	versions := make([]Package, 0, len(data.Package.Versions))
	for version, pkg := range data.Package.Versions {
		pkg.Name = name
		if pkg.Version == "" {
			pkg.Version = version
		}
		versions = append(versions, pkg)
	}
	sortPackages(versions)
	return versions, nil
}

// Search queries the repository search endpoint.
func (r *composerRepository) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search.json?q=%s", r.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository %s returned %s for search %q", r.baseURL, resp.Status, keyword)
	}

	var data struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return data.Results, nil
}

// sortPackages orders versions of one package newest first.
func sortPackages(pkgs []Package) {
	versions := make([]string, len(pkgs))
	byVersion := make(map[string]Package, len(pkgs))
	for i, p := range pkgs {
		versions[i] = p.Version
		byVersion[p.Version] = p
	}
	SortVersions(versions)
	for i, v := range versions {
		pkgs[i] = byVersion[v]
	}
}

func sortByName(pkgs []Package) {
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
}
