package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/julian-richter/ComposerBackend/internal/backend"
	"github.com/julian-richter/ComposerBackend/internal/pkgmgr"
)

var stabilities = []string{"stable", "RC", "beta", "alpha", "dev"}

type settingsForm struct {
	Stabilities      []string
	MinimumStability string
	PreferStable     bool
	Repositories     string
}

// Settings edits minimum-stability, prefer-stable and the extra
// repositories of the project.
type Settings struct{ base }

func (h *Settings) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	root := h.root()
	form := settingsForm{
		Stabilities:      stabilities,
		MinimumStability: root.MinimumStability,
		PreferStable:     root.PreferStable,
		Repositories:     repositoryLines(root.Repositories),
	}
	if form.MinimumStability == "" {
		form.MinimumStability = "stable"
	}

	if !req.IsPost() || !backend.Truthy(req.Post("save")) {
		return h.page("settings.html", form)
	}

	form.MinimumStability = req.Post("minimum-stability")
	form.PreferStable = backend.Truthy(req.Post("prefer-stable"))
	form.Repositories = req.Post("repositories")

	repos, problems := parseRepositories(form.Repositories)
	if !slices.Contains(stabilities, form.MinimumStability) {
		problems = append(problems, fmt.Sprintf("Unknown minimum stability %q.", form.MinimumStability))
	}
	if len(problems) > 0 {
		out, err := h.page("settings.html", form)
		for _, p := range problems {
			out.Notices.Error(p)
		}
		return out, err
	}

	stability := form.MinimumStability
	if stability == "stable" {
		stability = ""
	}
	if err := root.SetMinimumStability(stability); err != nil {
		return backend.Output{}, err
	}
	if err := root.SetPreferStable(form.PreferStable); err != nil {
		return backend.Output{}, err
	}
	if err := root.SetRepositories(repos); err != nil {
		return backend.Output{}, err
	}
	if err := h.save(); err != nil {
		return backend.Output{}, err
	}

	out := backend.Output{Redirect: backend.RedirectTo("settings", "dialog")}
	out.Notices.Confirm("Settings saved.")
	return out, nil
}

func repositoryLines(repos []pkgmgr.Repository) string {
	lines := make([]string, 0, len(repos))
	for _, r := range repos {
		lines = append(lines, r.URL)
	}
	return strings.Join(lines, "\n")
}

// parseRepositories reads one composer repository URL per line.
func parseRepositories(text string) ([]pkgmgr.Repository, []string) {
	var (
		repos    []pkgmgr.Repository
		problems []string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		u, err := url.ParseRequestURI(line)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("Invalid repository URL %q.", line))
			continue
		}
		repos = append(repos, pkgmgr.Repository{Type: "composer", URL: line})
	}
	return repos, problems
}

// ExpertsEditor edits composer.json as text.
type ExpertsEditor struct{ base }

func (h *ExpertsEditor) Handle(ctx context.Context, req *backend.Request) (backend.Output, error) {
	if req.IsPost() && req.Post("json") != "" {
		text := req.Post("json")
		if err := validateManifest(text); err != nil {
			out, rerr := h.page("experts_editor.html", map[string]any{"JSON": text, "ConfigPath": h.configPath})
			out.Notices.Error(err.Error())
			return out, rerr
		}
		if err := h.root().ReplaceWith([]byte(text)); err != nil {
			return backend.Output{}, err
		}
		if err := h.save(); err != nil {
			return backend.Output{}, err
		}
		out := backend.Output{Redirect: backend.RedirectTo("settings", "experts")}
		out.Notices.Confirm(fmt.Sprintf("%s saved.", h.configPath))
		return out, nil
	}

	data, err := h.root().Bytes()
	if err != nil {
		return backend.Output{}, err
	}
	return h.page("experts_editor.html", map[string]any{"JSON": string(data), "ConfigPath": h.configPath})
}

// validateManifest accepts a JSON object whose known keys have the expected
// types.
func validateManifest(text string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	var typed pkgmgr.ComposerJSON
	if err := json.Unmarshal([]byte(text), &typed); err != nil {
		return fmt.Errorf("invalid composer.json: %w", err)
	}
	for name, constraint := range typed.Require {
		if pkgmgr.IsDevVersion(constraint) {
			continue
		}
		if _, err := pkgmgr.ParseConstraint(constraint); err != nil {
			return fmt.Errorf("invalid constraint %q for %s: %w", constraint, name, err)
		}
	}
	return nil
}
