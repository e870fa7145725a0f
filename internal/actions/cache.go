package actions

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/julian-richter/ComposerBackend/internal/backend"
)

// ClearCache empties the package cache and returns to the list.
type ClearCache struct{ base }

func (h *ClearCache) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	out := backend.Output{Redirect: backend.RedirectTo()}
	freed, err := h.composer.ClearCache()
	if err != nil {
		h.logger().Error("Failed to clear cache", "dir", h.composer.CacheDir(), "error", err)
		out.Notices.Error(err.Error())
		return out, nil
	}
	out.Notices.Confirm(fmt.Sprintf("Composer cache cleared, %s freed.", humanize.Bytes(uint64(freed))))
	return out, nil
}
