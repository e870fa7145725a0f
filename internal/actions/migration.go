package actions

import (
	"context"
	"sort"

	"github.com/julian-richter/ComposerBackend/internal/backend"
)

// MigrationWizard moves a project onto the Composer client. Until it ran
// every request lands here.
type MigrationWizard struct{ base }

func (h *MigrationWizard) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	if req.IsPost() && req.Post("migrate") == "do" {
		if err := h.root().SetMigrated(true); err != nil {
			return backend.Output{}, err
		}
		if err := h.save(); err != nil {
			return backend.Output{}, err
		}
		h.logger().Info("Project migrated", "config", h.configPath)
		out := backend.Output{Redirect: backend.RedirectTo()}
		out.Notices.Confirm("Migration completed.")
		return out, nil
	}

	requires := make([]string, 0, len(h.root().Require))
	for name, constraint := range h.root().Require {
		requires = append(requires, name+" "+constraint)
	}
	sort.Strings(requires)
	return h.page("migration.html", map[string]any{
		"ConfigPath": h.configPath,
		"Requires":   requires,
	})
}

// UndoMigration reverts the migration flag after confirmation.
type UndoMigration struct{ base }

func (h *UndoMigration) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	if req.IsPost() && backend.Truthy(req.Post("confirm")) {
		if err := h.root().SetMigrated(false); err != nil {
			return backend.Output{}, err
		}
		if err := h.save(); err != nil {
			return backend.Output{}, err
		}
		h.logger().Info("Project migration undone", "config", h.configPath)
		out := backend.Output{Redirect: backend.RedirectTo()}
		out.Notices.Confirm("Migration has been undone.")
		return out, nil
	}
	return h.page("undo_migration.html", nil)
}
