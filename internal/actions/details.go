package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

// Details lists the versions of one package and lets the user pick a
// constraint, which is then checked by Solve.
type Details struct{ base }

func (h *Details) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	name := strings.TrimSpace(req.Get("install"))

	if req.IsPost() && backend.Truthy(req.Post("version")) {
		constraint := strings.TrimSpace(req.Post("version"))
		if !pkgmgr.IsDevVersion(constraint) {
			if _, err := pkgmgr.ParseConstraint(constraint); err != nil {
				out := backend.Output{Redirect: backend.RedirectTo("install", name)}
				out.Notices.Error(fmt.Sprintf("Invalid version constraint %q.", constraint))
				return out, nil
			}
		}
		return backend.Output{Redirect: backend.RedirectTo("solve", name, "version", constraint)}, nil
	}

	resolver, err := h.composer.NewResolver()
	if err != nil {
		return backend.Output{}, err
	}
	data := map[string]any{
		"Name":     name,
		"Required": h.root().Require[name],
	}
	if pkg, ok := h.composer.Installed().Find(name); ok {
		data["Installed"] = pkg.Version
	}

	versions, err := resolver.Versions(ctx, name)
	if err != nil {
		out, rerr := h.page("details.html", data)
		out.Notices.Error(err.Error())
		return out, rerr
	}
	data["Versions"] = versions
	if len(versions) > 0 {
		data["Latest"] = versions[0]
	}
	return h.page("details.html", data)
}

// Solve resolves the project with one candidate requirement added and, on
// request, adopts it.
type Solve struct{ base }

func (h *Solve) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	name := strings.TrimSpace(req.Get("solve"))
	constraint := strings.TrimSpace(req.Get("version"))
	if constraint == "" {
		constraint = "*"
	}

	if req.IsPost() && backend.Truthy(req.Post("apply")) {
		if err := h.root().SetRequire(name, constraint); err != nil {
			return backend.Output{}, err
		}
		if err := h.save(); err != nil {
			return backend.Output{}, err
		}
		out := backend.Output{Redirect: backend.RedirectTo("update", "packages")}
		out.Notices.Confirm(fmt.Sprintf("Added %s %s to the requirements.", name, constraint))
		return out, nil
	}

	require := make(map[string]string, len(h.root().Require)+1)
	for k, v := range h.root().Require {
		require[k] = v
	}
	require[name] = constraint

	res, err := h.composer.Resolve(ctx, require)
	if err != nil {
		return backend.Output{}, err
	}

	var changes []change
	for _, pkg := range res.Packages {
		c := change{Name: pkg.Name, To: pkg.Version}
		if cur, ok := h.composer.Installed().Find(pkg.Name); ok {
			if cur.Version == pkg.Version {
				continue
			}
			c.From = cur.Version
		}
		changes = append(changes, c)
	}

	return h.page("solve.html", map[string]any{
		"Name":       name,
		"Constraint": constraint,
		"Resolution": res,
		"Changes":    changes,
	})
}

type change struct {
	Name string
	From string
	To   string
}
