package actions

import (
	"context"
	"errors"
	"os"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

var chdir = os.Chdir

// UpdatePackages installs the current requirements from inside the composer
// directory and shows the package-manager output. The dispatcher restores
// the working directory afterwards.
type UpdatePackages struct{ base }

func (h *UpdatePackages) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	if err := chdir(h.composer.Dir()); err != nil {
		return backend.Output{}, err
	}

	// The project logger writes to the request buffer.
	res, err := h.composer.Install(ctx)
	for _, p := range res.Problems {
		h.composer.Logger().Error("Unresolvable requirement", "problem", p)
	}

	data := map[string]any{"Output": h.io.Output()}
	out, rerr := h.page("update_packages.html", data)
	if rerr != nil {
		return backend.Output{}, rerr
	}
	switch {
	case err == nil:
		out.Notices.Confirm("Packages updated.")
	case errors.Is(err, pkgmgr.ErrUnresolvable), errors.Is(err, context.Canceled):
		out.Notices.Error(err.Error())
	default:
		h.logger().Error("Package update failed", "dir", h.composer.Dir(), "error", err)
		out.Notices.Error(err.Error())
	}
	return out, nil
}
