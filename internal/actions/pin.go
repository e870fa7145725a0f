package actions

import (
	"context"
	"fmt"

	"github.com/julian-richter/ComposerBackend/internal/backend"
)

// Pin toggles an exact version requirement on an installed package. The
// constraint it replaces is kept in extra.contao.pinned so unpinning can
// restore it.
type Pin struct{ base }

func (h *Pin) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	name := req.Post("pin")
	out := backend.Output{Redirect: backend.RedirectTo()}

	pkg, ok := h.composer.Installed().Find(name)
	if !ok {
		out.Notices.Error(fmt.Sprintf("%s is not installed.", name))
		return out, nil
	}

	pinned := h.pinned()
	root := h.root()
	if previous, isPinned := pinned[name]; isPinned {
		delete(pinned, name)
		var err error
		if previous == "" {
			err = root.RemoveRequire(name)
		} else {
			err = root.SetRequire(name, previous)
		}
		if err != nil {
			return backend.Output{}, err
		}
		out.Notices.Confirm(fmt.Sprintf("%s unpinned.", name))
	} else {
		pinned[name] = root.Require[name]
		if err := root.SetRequire(name, pkg.Version); err != nil {
			return backend.Output{}, err
		}
		out.Notices.Confirm(fmt.Sprintf("%s pinned to %s.", name, pkg.Version))
	}

	if err := h.setPinned(pinned); err != nil {
		return backend.Output{}, err
	}
	if err := h.save(); err != nil {
		return backend.Output{}, err
	}
	return out, nil
}

// RemovePackage drops a requirement and sends the user to the update page.
type RemovePackage struct{ base }

func (h *RemovePackage) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	name := req.Post("remove")
	root := h.root()
	if _, ok := root.Require[name]; !ok {
		out := backend.Output{Redirect: backend.RedirectTo()}
		out.Notices.Error(fmt.Sprintf("%s is not required by the project.", name))
		return out, nil
	}

	if err := root.RemoveRequire(name); err != nil {
		return backend.Output{}, err
	}
	pinned := h.pinned()
	if _, ok := pinned[name]; ok {
		delete(pinned, name)
		if err := h.setPinned(pinned); err != nil {
			return backend.Output{}, err
		}
	}
	if err := h.save(); err != nil {
		return backend.Output{}, err
	}

	h.logger().Info("Removed requirement", "package", name)
	out := backend.Output{Redirect: backend.RedirectTo("update", "packages")}
	out.Notices.Confirm(fmt.Sprintf("%s removed from the requirements.", name))
	return out, nil
}
