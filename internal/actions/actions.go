// Package actions implements the pages of the Composer client, one handler
// per backend action.
package actions

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/bootstrap"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
	"github.com/julian-richter/ComposerBackend/internal/store"
	"github.com/julian-richter/ComposerBackend/internal/view"
)

// UpdateStore records package database updates.
type UpdateStore interface {
	AppliedUpdates(ctx context.Context) (map[string]store.AppliedUpdate, error)
	ApplyUpdate(ctx context.Context, file, checksum, statements string) error
	Tables(ctx context.Context) ([]string, error)
}

// Deps are process-wide dependencies shared by every handler.
type Deps struct {
	Config config.Config
	Store  UpdateStore
	Logger *log.Logger
}

// Registry maps every backend action to its handler constructor.
func Registry(deps Deps) map[backend.Action]backend.Factory {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	wrap := func(build func(base) backend.Handler) backend.Factory {
		return func(c bootstrap.Collaborators) backend.Handler {
			return build(base{configPath: c.ConfigPath, io: c.IO, composer: c.Composer, deps: deps})
		}
	}
	return map[backend.Action]backend.Factory{
		backend.ActionMigrationWizard: wrap(func(b base) backend.Handler { return &MigrationWizard{b} }),
		backend.ActionUndoMigration:   wrap(func(b base) backend.Handler { return &UndoMigration{b} }),
		backend.ActionUpdateDatabase:  wrap(func(b base) backend.Handler { return &UpdateDatabase{b} }),
		backend.ActionClearCache:      wrap(func(b base) backend.Handler { return &ClearCache{b} }),
		backend.ActionSettings:        wrap(func(b base) backend.Handler { return &Settings{b} }),
		backend.ActionExpertsEditor:   wrap(func(b base) backend.Handler { return &ExpertsEditor{b} }),
		backend.ActionDependencyGraph: wrap(func(b base) backend.Handler { return &DependencyGraph{b} }),
		backend.ActionSearch:          wrap(func(b base) backend.Handler { return &Search{b} }),
		backend.ActionDetails:         wrap(func(b base) backend.Handler { return &Details{b} }),
		backend.ActionSolve:           wrap(func(b base) backend.Handler { return &Solve{b} }),
		backend.ActionUpdatePackages:  wrap(func(b base) backend.Handler { return &UpdatePackages{b} }),
		backend.ActionPin:             wrap(func(b base) backend.Handler { return &Pin{b} }),
		backend.ActionRemovePackage:   wrap(func(b base) backend.Handler { return &RemovePackage{b} }),
		backend.ActionInstalledList:   wrap(func(b base) backend.Handler { return &InstalledList{b} }),
	}
}

// base holds the collaborators injected into every handler.
type base struct {
	configPath string
	io         *bootstrap.Buffer
	composer   *pkgmgr.Composer
	deps       Deps
}

func (b base) root() *pkgmgr.RootPackage { return b.composer.Package() }

func (b base) logger() *log.Logger { return b.deps.Logger }

// page renders a template into an Output.
func (b base) page(name string, data any) (backend.Output, error) {
	body, err := view.Render(name, data)
	if err != nil {
		return backend.Output{}, err
	}
	return backend.Output{Body: body}, nil
}

func (b base) save() error {
	if err := b.root().Save(); err != nil {
		return fmt.Errorf("save %s: %w", b.configPath, err)
	}
	return nil
}

const pinnedKey = "pinned"

// pinned returns extra.contao.pinned: package name to the constraint it had
// before pinning.
func (b base) pinned() map[string]string {
	out := map[string]string{}
	raw, ok := b.root().ContaoExtra()[pinnedKey].(map[string]any)
	if !ok {
		return out
	}
	for name, v := range raw {
		if s, ok := v.(string); ok {
			out[name] = s
		}
	}
	return out
}

func (b base) setPinned(pinned map[string]string) error {
	contao := b.root().ContaoExtra()
	if len(pinned) == 0 {
		delete(contao, pinnedKey)
	} else {
		raw := make(map[string]any, len(pinned))
		for k, v := range pinned {
			raw[k] = v
		}
		contao[pinnedKey] = raw
	}
	return b.root().SetExtra(b.root().Extra)
}
