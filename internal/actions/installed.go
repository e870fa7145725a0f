package actions

import (
	"context"
	"sort"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

type installedRow struct {
	Name        string
	Constraint  string
	Version     string
	Description string
	Time        string
	Pinned      bool
	Missing     bool
	Dependents  []string
}

// InstalledList is the default page: required packages with their installed
// versions, followed by packages pulled in as dependencies.
type InstalledList struct{ base }

func (h *InstalledList) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	installed := h.composer.Installed()
	pinned := h.pinned()
	required := h.root().Require

	var requiredRows, dependencyRows []installedRow
	for _, name := range sortedNames(required) {
		row := installedRow{Name: name, Constraint: required[name]}
		_, row.Pinned = pinned[name]
		if pkg, ok := installed.Find(name); ok {
			fill(&row, pkg)
		} else {
			row.Missing = true
		}
		requiredRows = append(requiredRows, row)
	}
	for _, pkg := range installed.Packages() {
		if _, ok := required[pkg.Name]; ok {
			continue
		}
		row := installedRow{Name: pkg.Name, Dependents: pkgmgr.Dependents(installed, pkg.Name)}
		fill(&row, pkg)
		dependencyRows = append(dependencyRows, row)
	}

	return h.page("installed.html", map[string]any{
		"Required":     requiredRows,
		"Dependencies": dependencyRows,
	})
}

func fill(row *installedRow, pkg pkgmgr.Package) {
	row.Version = pkg.Version
	row.Description = pkg.Description
	row.Time = pkg.Time
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
