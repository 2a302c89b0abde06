package storage_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/storage"
)

func testLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	store, err := storage.NewJSONStore(path, testLogger())
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "storage.db")

	store, err := storage.NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestMemoryStore(t *testing.T) {
	testStoreOperations(t, storage.NewMemoryStore())
}

func testStoreOperations(t *testing.T, store storage.Store) {
	const key = config.DefaultTokenKey

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, err, models.ErrStorageNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, store.Set(key, "tok-1"))

		value, err := store.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(key, "tok-2"))
		require.NoError(t, store.Set("theme", "dark"))

		value, err := store.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "tok-2", value)

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{key, "theme"}, keys)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(key))
		_, err := store.Get(key)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// Removing again is fine.
		assert.NoError(t, store.Remove(key))

		value, err := store.Get("theme")
		require.NoError(t, err)
		assert.Equal(t, "dark", value)
	})

	t.Run("concurrent writes", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				assert.NoError(t, store.Set(fmt.Sprintf("key-%d", n), fmt.Sprint(n)))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			value, err := store.Get(fmt.Sprintf("key-%d", i))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), value)
		}
	})
}

func TestJSONStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	first, err := storage.NewJSONStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Set("authToken", "persisted"))

	second, err := storage.NewJSONStore(path, testLogger())
	require.NoError(t, err)
	value, err := second.Get("authToken")
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := storage.NewJSONStore(path, testLogger())
	require.NoError(t, err)

	_, err = store.Get("authToken")
	assert.ErrorIs(t, err, storage.ErrCorrupt)

	// Writes start from a clean file.
	require.NoError(t, store.Remove("authToken"))
	require.NoError(t, store.Set("authToken", "fresh"))

	value, err := store.Get("authToken")
	require.NoError(t, err)
	assert.Equal(t, "fresh", value)
}

func TestSQLiteStorePersistsAcrossInstances(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "storage.db")

	first, err := storage.NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Set("authToken", "persisted"))
	require.NoError(t, first.Close())

	second, err := storage.NewSQLiteStore(dbPath, testLogger())
	require.NoError(t, err)
	defer second.Close()

	value, err := second.Get("authToken")
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    interface{}
		wantErr bool
	}{
		{"file", config.StorageConfig{Backend: "file", Path: filepath.Join(dir, "s.json")}, &storage.JSONStore{}, false},
		{"sqlite", config.StorageConfig{Backend: "sqlite", Path: filepath.Join(dir, "s.db")}, &storage.SQLiteStore{}, false},
		{"memory", config.StorageConfig{Backend: "memory"}, &storage.MemoryStore{}, false},
		{"unknown", config.StorageConfig{Backend: "cookie"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := storage.Open(&tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestMockStore(t *testing.T) {
	m := &storage.MockStore{}
	m.On("Get", "authToken").Return("", storage.ErrNotFound)
	m.On("Set", "authToken", "tok").Return(errors.New("disk full"))

	_, err := m.Get("authToken")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.EqualError(t, m.Set("authToken", "tok"), "disk full")

	m.AssertExpectations(t)
}
