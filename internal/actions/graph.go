package actions

import (
	"context"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

// DependencyGraph shows the installed dependency tree.
type DependencyGraph struct{ base }

func (h *DependencyGraph) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	nodes := pkgmgr.DependencyGraph(h.root(), h.composer.Installed())
	return h.page("dependency_graph.html", map[string]any{"Nodes": nodes})
}
