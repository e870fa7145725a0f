package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	phpExtRE     = regexp.MustCompile(`^(ext|lib)-[\w.-]+$`)
	npmAssetRE   = regexp.MustCompile(`^npm-asset/`)
	bowerAssetRE = regexp.MustCompile(`^bower-asset/`)
)

const DefaultPackagistURL = "https://packagist.org"

// Resolution is the outcome of a resolver run. Problems are human readable
// and do not abort the run; callers decide whether they are fatal.
type Resolution struct {
	Packages []Package
	Problems []string
}

// OK reports a clean resolution.
func (r Resolution) OK() bool { return len(r.Problems) == 0 }

// Resolver picks concrete versions for a set of requirements, following
// requirements of chosen packages transitively. A package is fixed the first
// time it is chosen; later conflicting constraints are reported as problems.
type Resolver struct {
	repos            []RepositoryDriver
	assetRepos       []RepositoryDriver
	minimumStability string
	preferStable     bool
	provided         map[string]string
	logger           *log.Logger
	versions         map[string][]Package
}

// NewResolver builds a resolver for the repositories of root, with Packagist
// queried last.
func NewResolver(root ComposerJSON, packagistURL string, client *http.Client, logger *log.Logger) (*Resolver, error) {
	if packagistURL == "" {
		packagistURL = DefaultPackagistURL
	}
	r := &Resolver{
		minimumStability: root.MinimumStability,
		preferStable:     root.PreferStable,
		provided:         root.Provide,
		logger:           logger,
		versions:         map[string][]Package{},
	}

	for _, repo := range root.Repositories {
		driver, err := driverFor(repo, client)
		if errors.Is(err, ErrNoDriver) {
			logger.Debug("Skipping repository without driver", "type", repo.Type, "url", repo.URL)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.URL, err)
		}
		if strings.Contains(repo.URL, "asset-packagist.org") {
			r.assetRepos = append(r.assetRepos, driver)
			continue
		}
		r.repos = append(r.repos, driver)
	}

	packagist, err := driverFor(Repository{Type: "composer", URL: packagistURL}, client)
	if err != nil {
		return nil, fmt.Errorf("packagist: %w", err)
	}
	r.repos = append(r.repos, packagist)
	return r, nil
}

// Versions returns all known versions of name, newest first. The first
// repository that knows the package wins.
func (r *Resolver) Versions(ctx context.Context, name string) ([]Package, error) {
	if cached, ok := r.versions[name]; ok {
		return cached, nil
	}

	repos := r.repos
	if isAssetPackage(name) {
		r.logger.Debug("Detected asset package", "package", name)
		repos = r.assetRepos
		if len(repos) == 0 {
			return nil, fmt.Errorf("asset package %s needs asset-packagist.org in repositories", name)
		}
	}

	var lastErr error
	for _, repo := range repos {
		r.logger.Debug("Trying repository", "package", name, "repo", repo.URL())
		versions, err := repo.Versions(ctx, name)
		if err == nil {
			r.versions[name] = versions
			return versions, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debug("Package not found in repository", "package", name, "repo", repo.URL(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%s: %w", name, ErrPackageNotFound)
	}
	return nil, lastErr
}

type pending struct {
	name       string
	constraint string
	requiredBy string
}

// Resolve chooses versions for require and everything it pulls in.
func (r *Resolver) Resolve(ctx context.Context, require map[string]string) (Resolution, error) {
	var res Resolution
	chosen := map[string]Package{}
	constraints := map[string][]string{}

	queue := make([]pending, 0, len(require))
	for _, name := range sortedKeys(require) {
		queue = append(queue, pending{name: name, constraint: require[name], requiredBy: "root"})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}
		item := queue[0]
		queue = queue[1:]

		if isPlatformRequirement(item.name) {
			r.logger.Debug("Skipping platform requirement", "package", item.name)
			continue
		}

		if version, ok := r.provided[item.name]; ok {
			if !Satisfies(version, item.constraint) {
				res.Problems = append(res.Problems, fmt.Sprintf(
					"%s requires %s %s, but the project provides %s",
					item.requiredBy, item.name, item.constraint, version))
			}
			continue
		}

		constraints[item.name] = append(constraints[item.name], item.constraint)

		if pkg, ok := chosen[item.name]; ok {
			if !Satisfies(pkg.Version, item.constraint) {
				res.Problems = append(res.Problems, fmt.Sprintf(
					"%s requires %s %s, but %s is already selected",
					item.requiredBy, item.name, item.constraint, pkg.Version))
			}
			continue
		}

		versions, err := r.Versions(ctx, item.name)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			r.logger.Warn("Failed to look up package", "package", item.name, "error", err.Error())
			res.Problems = append(res.Problems, fmt.Sprintf("%s: %v", item.name, err))
			continue
		}

		pkg, ok := r.pick(versions, constraints[item.name])
		if !ok {
			res.Problems = append(res.Problems, fmt.Sprintf(
				"%s requires %s %s, no matching version found",
				item.requiredBy, item.name, item.constraint))
			continue
		}

		r.logger.Debug("Resolved package", "package", pkg.Name, "version", pkg.Version)
		chosen[item.name] = pkg
		for _, dep := range sortedKeys(pkg.Require) {
			queue = append(queue, pending{name: dep, constraint: pkg.Require[dep], requiredBy: pkg.Name})
		}
	}

	for _, pkg := range chosen {
		res.Packages = append(res.Packages, pkg)
	}
	sortByName(res.Packages)

	if len(res.Problems) > 0 {
		r.logger.Warn("Some packages could not be resolved", "count", len(res.Problems), "total", len(require))
	}
	r.logger.Info("Package resolution complete", "resolved", len(res.Packages), "failed", len(res.Problems))
	return res, nil
}

// pick returns the newest version that satisfies every constraint and the
// minimum stability, preferring stable releases when prefer-stable is set.
func (r *Resolver) pick(versions []Package, constraints []string) (Package, bool) {
	var fallback *Package
	for i := range versions {
		v := versions[i]
		if !StabilityAllowed(v.Version, r.minimumStability) || !satisfiesAll(v.Version, constraints) {
			continue
		}
		if r.preferStable && Stability(v.Version) != "stable" {
			if fallback == nil {
				fallback = &versions[i]
			}
			continue
		}
		return v, true
	}
	if fallback != nil {
		return *fallback, true
	}
	return Package{}, false
}

func satisfiesAll(version string, constraints []string) bool {
	for _, c := range constraints {
		if !Satisfies(version, c) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isPlatformRequirement(name string) bool {
	return name == "php" || name == "composer-plugin-api" || phpExtRE.MatchString(name)
}

func isAssetPackage(name string) bool {
	return npmAssetRE.MatchString(name) || bowerAssetRE.MatchString(name)
}
