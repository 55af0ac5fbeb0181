package prefs

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestGetUnsetKeyReturnsNil(t *testing.T) {
	repo := newTestRepo(t)

	value, err := repo.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSetReplacesValue(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("theme", "dark"))
	require.NoError(t, repo.Set("theme", "light"))

	value, err := repo.Get("theme")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "light", *value)
}

func TestAllReturnsEveryPref(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("theme", "dark"))
	require.NoError(t, repo.Set("allocation_dimension", "sector"))

	all, err := repo.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"theme":                "dark",
		"allocation_dimension": "sector",
	}, all)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Set("sidebar_open", "true"))
	require.NoError(t, repo.Delete("sidebar_open"))
	require.NoError(t, repo.Delete("sidebar_open"))

	value, err := repo.Get("sidebar_open")
	require.NoError(t, err)
	assert.Nil(t, value)
}
