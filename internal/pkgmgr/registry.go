package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// RepositoryDriver answers version lookups for one repository.
type RepositoryDriver interface {
	URL() string
	Versions(ctx context.Context, name string) ([]Package, error)
}

// DriverFactory builds a driver for a repository entry of composer.json.
type DriverFactory func(repo Repository, client *http.Client) (RepositoryDriver, error)

// ErrNoDriver is returned for repository types nobody registered.
var ErrNoDriver = errors.New("no repository driver registered")

var (
	driversMu    sync.RWMutex
	drivers      = map[string]DriverFactory{}
	registerOnce sync.Once
)

// RegisterDriver makes a repository type available to resolvers. A later
// registration for the same type replaces the earlier one.
func RegisterDriver(typ string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[typ] = factory
}

// RegisterDefaultDrivers installs the built-in drivers. It runs once per
// process; repeated calls are no-ops.
func RegisterDefaultDrivers() {
	registerOnce.Do(func() {
		RegisterDriver("composer", newComposerRepository)
	})
}

// RegisteredDrivers lists the registered repository types.
func RegisteredDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	types := make([]string, 0, len(drivers))
	for typ := range drivers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

func driverFor(repo Repository, client *http.Client) (RepositoryDriver, error) {
	driversMu.RLock()
	factory, ok := drivers[repo.Type]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for type %q", ErrNoDriver, repo.Type)
	}
	return factory(repo, client)
}
