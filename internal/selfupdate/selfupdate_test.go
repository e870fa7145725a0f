package selfupdate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julian-richter/ComposerBackend/internal/config"
	"github.com/julian-richter/ComposerBackend/internal/notice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pharBody = "<?php // composer build\n"

type fakeFreshness struct {
	deadline time.Time
	calls    int
}

func (f *fakeFreshness) SetFreshUntil(_ context.Context, deadline time.Time) error {
	f.calls++
	f.deadline = deadline
	return nil
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	sum := sha256.Sum256([]byte(pharBody))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/composer.phar.sha256":
			_, _ = w.Write([]byte(hex.EncodeToString(sum[:]) + "  composer.phar\n"))
		case "/bad.sha256":
			_, _ = w.Write([]byte(strings.Repeat("0", 64)))
		default:
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// jsonLogger records entries as JSON lines so tests can count them by level.
func jsonLogger(buf *bytes.Buffer) *log.Logger {
	l := log.NewWithOptions(buf, log.Options{Formatter: log.JSONFormatter, Level: log.DebugLevel})
	return l
}

func errorEntries(buf *bytes.Buffer) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"level":"error"`) {
			out = append(out, line)
		}
	}
	return out
}

func newUpdater(t *testing.T, cfg config.SelfUpdateConfig, fresh FreshnessRecorder, buf *bytes.Buffer) (*Updater, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "composer")
	u := New(cfg, dir, fresh, jsonLogger(buf))
	u.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return u, dir
}

func TestInstallSuccess(t *testing.T) {
	srv := serve(t, http.StatusOK, pharBody)
	fresh := &fakeFreshness{}
	var logs bytes.Buffer
	u, dir := newUpdater(t, config.SelfUpdateConfig{
		URL:         srv.URL + "/composer.phar",
		ChecksumURL: srv.URL + "/composer.phar.sha256",
		FreshFor:    720 * time.Hour,
	}, fresh, &logs)

	n := notice.Notices{Errors: []string{"stale failure"}}
	require.NoError(t, u.Install(context.Background(), &n))

	assert.Equal(t, []string{MsgUpdated}, n.Confirmations)
	assert.Empty(t, n.Errors, "success clears earlier errors")
	assert.True(t, u.Installed())

	data, err := os.ReadFile(filepath.Join(dir, ArtifactName))
	require.NoError(t, err)
	assert.Equal(t, pharBody, string(data))

	assert.Equal(t, 1, fresh.calls)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), fresh.deadline)
	assert.Empty(t, errorEntries(&logs))
}

func TestInstallFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		checksum string
		rename   func(string, string) error
	}{
		{name: "http error", status: http.StatusBadGateway, body: "nope"},
		{name: "empty body", status: http.StatusOK, body: ""},
		{name: "checksum mismatch", status: http.StatusOK, body: pharBody, checksum: "/bad.sha256"},
		{name: "checksum missing", status: http.StatusOK, body: pharBody, checksum: "/absent.sha256"},
		{
			name: "rename fails", status: http.StatusOK, body: pharBody,
			rename: func(string, string) error { return errors.New("disk full") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rename != nil {
				orig := osRename
				osRename = tt.rename
				t.Cleanup(func() { osRename = orig })
			}
			srv := serve(t, tt.status, tt.body)
			cfg := config.SelfUpdateConfig{URL: srv.URL + "/composer.phar", FreshFor: time.Hour}
			if tt.checksum != "" {
				cfg.ChecksumURL = srv.URL + tt.checksum
			}
			fresh := &fakeFreshness{}
			var logs bytes.Buffer
			u, dir := newUpdater(t, cfg, fresh, &logs)

			n := notice.Notices{Confirmations: []string{"earlier"}}
			require.Error(t, u.Install(context.Background(), &n))

			assert.Len(t, n.Errors, 1)
			assert.Equal(t, []string{"earlier"}, n.Confirmations)
			entries := errorEntries(&logs)
			require.Len(t, entries, 1)
			assert.Contains(t, entries[0], `"source":"selfupdate.Install"`)

			assert.False(t, u.Installed(), "no artifact after a failed install")
			leftovers, err := filepath.Glob(filepath.Join(dir, "*"))
			require.NoError(t, err)
			assert.Empty(t, leftovers, "temp files are removed")
			assert.Zero(t, fresh.calls)
		})
	}
}

func TestInstallKeepsPreviousArtifactOnFailure(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, "")
	var logs bytes.Buffer
	u, dir := newUpdater(t, config.SelfUpdateConfig{URL: srv.URL + "/composer.phar"}, nil, &logs)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(u.Target(), []byte("old"), 0o755))

	var n notice.Notices
	require.Error(t, u.Install(context.Background(), &n))

	data, err := os.ReadFile(u.Target())
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}
