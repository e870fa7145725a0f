package backend

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/stretchr/testify/assert"
)

func getReq(pairs ...string) *Request {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Add(pairs[i], pairs[i+1])
	}
	return &Request{Method: http.MethodGet, Query: q, Form: url.Values{}}
}

func postReq(query url.Values, pairs ...string) *Request {
	f := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Add(pairs[i], pairs[i+1])
	}
	if query == nil {
		query = url.Values{}
	}
	return &Request{Method: http.MethodPost, Query: query, Form: f}
}

func TestResolveTable(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want Action
	}{
		{"undo migration", getReq("migrate", "undo"), ActionUndoMigration},
		{"update database", getReq("update", "database"), ActionUpdateDatabase},
		{"clear cache", getReq("clear", "composer-cache"), ActionClearCache},
		{"settings dialog", getReq("settings", "dialog"), ActionSettings},
		{"experts editor", getReq("settings", "experts"), ActionExpertsEditor},
		{"dependency graph", getReq("show", "dependency-graph"), ActionDependencyGraph},
		{"search", getReq("keyword", "foo"), ActionSearch},
		{"details", getReq("install", "acme/app"), ActionDetails},
		{"solve", getReq("solve", "acme/app"), ActionSolve},
		{"update packages query", getReq("update", "packages"), ActionUpdatePackages},
		{"update packages posted", postReq(nil, "update", "packages"), ActionUpdatePackages},
		{"pin", postReq(nil, "pin", "acme/app"), ActionPin},
		{"remove", postReq(nil, "remove", "acme/app"), ActionRemovePackage},
		{"no params", getReq(), ActionInstalledList},
		{"empty keyword", getReq("keyword", ""), ActionInstalledList},
		{"zero keyword", getReq("keyword", "0"), ActionInstalledList},
		{"unknown values", getReq("update", "everything", "settings", "other"), ActionInstalledList},
		{"pin in query is ignored", getReq("pin", "acme/app"), ActionInstalledList},
		{"posted field ignored on GET", &Request{Method: http.MethodGet, Query: url.Values{}, Form: url.Values{"remove": {"x"}}}, ActionInstalledList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.req, true, config.DispatchModePriority))
		})
	}
}

func TestResolveMigrationDominates(t *testing.T) {
	params := [][]string{
		{}, {"migrate", "undo"}, {"update", "database"}, {"clear", "composer-cache"},
		{"settings", "dialog"}, {"settings", "experts"}, {"show", "dependency-graph"},
		{"keyword", "foo"}, {"install", "x"}, {"solve", "x"}, {"update", "packages"},
	}
	for _, p := range params {
		assert.Equal(t, ActionMigrationWizard, Resolve(getReq(p...), false, config.DispatchModePriority), p)
		assert.Equal(t, ActionMigrationWizard, Resolve(postReq(getReq(p...).Query, "pin", "a", "remove", "b"), false, config.DispatchModePriority), p)
	}
}

func TestResolveFirstVersusLastMatch(t *testing.T) {
	req := postReq(url.Values{"keyword": {"foo"}, "migrate": {"undo"}}, "remove", "acme/app")

	assert.Equal(t, ActionUndoMigration, Resolve(req, true, config.DispatchModePriority))
	assert.Equal(t, ActionRemovePackage, Resolve(req, true, config.DispatchModeLegacy))

	// Legacy mode lets later rows override an unmigrated project too.
	assert.Equal(t, ActionSearch, Resolve(getReq("keyword", "foo"), false, config.DispatchModeLegacy))
	assert.Equal(t, ActionMigrationWizard, Resolve(getReq(), false, config.DispatchModeLegacy))
	assert.Equal(t, ActionInstalledList, Resolve(getReq(), true, config.DispatchModeLegacy))
}

func TestActionNames(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range AllActions() {
		name := a.String()
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Len(t, AllActions(), 14)
	assert.Equal(t, "action(99)", Action(99).String())
	assert.Equal(t, len(rules)+1, len(AllActions()), "every action but the fallback has a table row")
}
