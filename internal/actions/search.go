package actions

import (
	"context"
	"strings"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

type searchHit struct {
	pkgmgr.SearchResult
	Installed string
	Required  bool
}

// Search queries the project's repositories for a keyword.
type Search struct{ base }

func (h *Search) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	keyword := strings.TrimSpace(req.Get("keyword"))
	data := map[string]any{"Keyword": keyword}

	resolver, err := h.composer.NewResolver()
	if err != nil {
		return backend.Output{}, err
	}
	results, err := resolver.Search(ctx, keyword)
	if err != nil {
		h.logger().Warn("Search failed", "keyword", keyword, "error", err)
		out, rerr := h.page("search.html", data)
		out.Notices.Error(err.Error())
		return out, rerr
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hit := searchHit{SearchResult: r}
		if pkg, ok := h.composer.Installed().Find(r.Name); ok {
			hit.Installed = pkg.Version
		}
		_, hit.Required = h.root().Require[r.Name]
		hits = append(hits, hit)
	}
	data["Hits"] = hits
	return h.page("search.html", data)
}
