package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1", 0))
	require.NoError(t, s.Set(ctx, "k", "v2", time.Hour))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Set(ctx, "old", "x", time.Nanosecond))
	_, ok, err = s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries read as missing")
}

func TestFreshUntil(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, ok, err := s.FreshUntil(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	deadline := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.SetFreshUntil(ctx, deadline))
	got, ok, err := s.FreshUntil(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, deadline.Equal(got))
}

func TestApplyUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.ApplyUpdate(ctx, "vendor/acme/lib/config/database.sql", "abc",
		"CREATE TABLE tl_acme (id INTEGER PRIMARY KEY); INSERT INTO tl_acme (id) VALUES (1);"))

	applied, err := s.AppliedUpdates(ctx)
	require.NoError(t, err)
	require.Contains(t, applied, "vendor/acme/lib/config/database.sql")
	assert.Equal(t, "abc", applied["vendor/acme/lib/config/database.sql"].Checksum)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tl_acme"}, tables)

	err = s.ApplyUpdate(ctx, "broken.sql", "def", "CREATE TABLE tl_broken (id INTEGER); NOT SQL;")
	require.Error(t, err)
	applied, err = s.AppliedUpdates(ctx)
	require.NoError(t, err)
	assert.NotContains(t, applied, "broken.sql")
	tables, err = s.Tables(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tables, "tl_broken", "failed updates roll back")
}
