package backend

import "fmt"

// Action names the handler chosen for a request.
type Action int

const (
	ActionMigrationWizard Action = iota + 1
	ActionUndoMigration
	ActionUpdateDatabase
	ActionClearCache
	ActionSettings
	ActionExpertsEditor
	ActionDependencyGraph
	ActionSearch
	ActionDetails
	ActionSolve
	ActionUpdatePackages
	ActionPin
	ActionRemovePackage
	ActionInstalledList
)

var actionNames = map[Action]string{
	ActionMigrationWizard: "migration-wizard",
	ActionUndoMigration:   "undo-migration",
	ActionUpdateDatabase:  "update-database",
	ActionClearCache:      "clear-cache",
	ActionSettings:        "settings",
	ActionExpertsEditor:   "experts-editor",
	ActionDependencyGraph: "dependency-graph",
	ActionSearch:          "search",
	ActionDetails:         "details",
	ActionSolve:           "solve",
	ActionUpdatePackages:  "update-packages",
	ActionPin:             "pin",
	ActionRemovePackage:   "remove-package",
	ActionInstalledList:   "installed-list",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// AllActions lists every action in table order.
func AllActions() []Action {
	out := make([]Action, 0, len(actionNames))
	for a := ActionMigrationWizard; a <= ActionInstalledList; a++ {
		out = append(out, a)
	}
	return out
}
