package backend

import "github.com/julian-richter/ComposerBackend/internal/config"

type rule struct {
	action Action
	match  func(req *Request, migrated bool) bool
}

// rules is the action table in priority order. InstalledList is the
// fallback and has no row.
var rules = []rule{
	{ActionMigrationWizard, func(_ *Request, migrated bool) bool { return !migrated }},
	{ActionUndoMigration, func(r *Request, _ bool) bool { return r.Get("migrate") == "undo" }},
	{ActionUpdateDatabase, func(r *Request, _ bool) bool { return r.Get("update") == "database" }},
	{ActionClearCache, func(r *Request, _ bool) bool { return r.Get("clear") == "composer-cache" }},
	{ActionSettings, func(r *Request, _ bool) bool { return r.Get("settings") == "dialog" }},
	{ActionExpertsEditor, func(r *Request, _ bool) bool { return r.Get("settings") == "experts" }},
	{ActionDependencyGraph, func(r *Request, _ bool) bool { return r.Get("show") == "dependency-graph" }},
	{ActionSearch, func(r *Request, _ bool) bool { return Truthy(r.Get("keyword")) }},
	{ActionDetails, func(r *Request, _ bool) bool { return Truthy(r.Get("install")) }},
	{ActionSolve, func(r *Request, _ bool) bool { return Truthy(r.Get("solve")) }},
	{ActionUpdatePackages, func(r *Request, _ bool) bool {
		return r.Get("update") == "packages" || r.Post("update") == "packages"
	}},
	{ActionPin, func(r *Request, _ bool) bool { return Truthy(r.Post("pin")) }},
	{ActionRemovePackage, func(r *Request, _ bool) bool { return Truthy(r.Post("remove")) }},
}

// Resolve picks the action for req. In priority mode the first matching row
// wins; legacy mode lets the last matching row win. With no match the
// installed list is shown.
func Resolve(req *Request, migrated bool, mode config.DispatchMode) Action {
	if mode == config.DispatchModeLegacy {
		for i := len(rules) - 1; i >= 0; i-- {
			if rules[i].match(req, migrated) {
				return rules[i].action
			}
		}
		return ActionInstalledList
	}
	for _, r := range rules {
		if r.match(req, migrated) {
			return r.action
		}
	}
	return ActionInstalledList
}
