package actions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julian-richter/ComposerBackend/internal/backend"
)

// databaseFile is where packages ship their schema.
const databaseFile = "config/database.sql"

type pendingUpdate struct {
	Package  string
	File     string
	Checksum string
	Changed  bool
	sql      string
}

// UpdateDatabase applies the database.sql files of installed packages that
// have not run yet or changed since.
type UpdateDatabase struct{ base }

func (h *UpdateDatabase) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	if h.deps.Store == nil {
		out, err := h.page("update_database.html", map[string]any{"Unavailable": true})
		out.Notices.Error("No state database is configured.")
		return out, err
	}

	pending, err := h.pending(ctx)
	if err != nil {
		return backend.Output{}, err
	}

	if req.IsPost() && backend.Truthy(req.Post("confirm")) {
		out := backend.Output{Redirect: backend.RedirectTo()}
		for _, u := range pending {
			if err := h.deps.Store.ApplyUpdate(ctx, u.File, u.Checksum, u.sql); err != nil {
				h.logger().Error("Database update failed", "file", u.File, "error", err)
				out.Notices.Error(err.Error())
				out.Redirect = backend.RedirectTo("update", "database")
				return out, nil
			}
			h.io.WriteString(fmt.Sprintf("Applied %s\n", u.File))
		}
		out.Notices.Confirm(fmt.Sprintf("%d database update(s) applied.", len(pending)))
		return out, nil
	}

	tables, err := h.deps.Store.Tables(ctx)
	if err != nil {
		return backend.Output{}, err
	}
	return h.page("update_database.html", map[string]any{"Pending": pending, "Tables": tables})
}

func (h *UpdateDatabase) pending(ctx context.Context) ([]pendingUpdate, error) {
	applied, err := h.deps.Store.AppliedUpdates(ctx)
	if err != nil {
		return nil, err
	}

	var out []pendingUpdate
	for _, pkg := range h.composer.Installed().Packages() {
		rel := filepath.ToSlash(filepath.Join("vendor", pkg.Name, databaseFile))
		data, err := os.ReadFile(filepath.Join(h.composer.Dir(), rel))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		sum := sha256.Sum256(data)
		checksum := hex.EncodeToString(sum[:])
		prev, seen := applied[rel]
		if seen && prev.Checksum == checksum {
			continue
		}
		out = append(out, pendingUpdate{Package: pkg.Name, File: rel, Checksum: checksum, Changed: seen, sql: string(data)})
	}
	return out, nil
}
