package pkgmgr

import (
	"context"
	"errors"
)

// Searcher is implemented by repositories that offer keyword search.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]SearchResult, error)
}

// ErrSearchUnsupported is returned when no configured repository can search.
var ErrSearchUnsupported = errors.New("no repository supports search")

// Search asks every searchable repository and merges the hits. The first
// repository reporting a package name keeps it.
func (r *Resolver) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	var (
		results  []SearchResult
		seen     = map[string]bool{}
		searched bool
		lastErr  error
	)
	for _, repo := range r.repos {
		searcher, ok := repo.(Searcher)
		if !ok {
			continue
		}
		searched = true
		hits, err := searcher.Search(ctx, keyword)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Search failed", "repo", repo.URL(), "keyword", keyword, "error", err)
			lastErr = err
			continue
		}
		for _, hit := range hits {
			if seen[hit.Name] {
				continue
			}
			seen[hit.Name] = true
			if hit.Repository == "" {
				hit.Repository = repo.URL()
			}
			results = append(results, hit)
		}
	}
	if !searched {
		return nil, ErrSearchUnsupported
	}
	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}
