package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/storagetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProvider(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return setupTestStore(t)
	})
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init")
}

func TestLoadReopensInitializedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.db")
	store := NewStore(path)
	require.NoError(t, store.Init())
	require.NoError(t, store.AddActivity(storagetest.Single("single-1", time.Now())))
	require.NoError(t, store.Close())

	reopened := NewStore(path)
	require.NoError(t, reopened.Load())
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.GetActivity("single-1")
	require.NoError(t, err)
	assert.Equal(t, "File taxes", got.Single.Name)
	assert.Equal(t, path, reopened.GetConfigPath())
	assert.NotNil(t, reopened.GetDB())
}

func TestInitCreatesPrivateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	store := NewStore(filepath.Join(dir, "cadence.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMigrateIsNoopAfterInit(t *testing.T) {
	store := setupTestStore(t)
	applied, err := store.Migrate(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestSchemaVersions(t *testing.T) {
	store := setupTestStore(t)

	current, latest, err := store.SchemaVersions()
	require.NoError(t, err)
	assert.Equal(t, latest, current)
	assert.Positive(t, latest)

	require.NoError(t, store.Close())
	_, _, err = store.SchemaVersions()
	assert.Error(t, err)
}
