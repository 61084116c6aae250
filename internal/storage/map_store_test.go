package storage

import (
	"testing"

	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *MapStore {
	t.Helper()
	store, err := NewMapStore(t.TempDir())
	require.NoError(t, err, "не удалось открыть хранилище")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadMap(t *testing.T) {
	store := setupTestStore(t)

	m := world.NewMap("main", world.Bordered(20, 10), vec.Vec2Float{X: 32, Y: 48})
	_, err := m.PlaceBlock(5, 5, world.LayerIndexForeground, 5)
	require.NoError(t, err)
	require.True(t, m.Dirty)

	require.NoError(t, store.SaveMap(m))
	assert.False(t, m.Dirty, "после сохранения карта чистая")

	loaded, meta, err := store.Load("main")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Name)
	assert.False(t, meta.SavedAt.IsZero())
	assert.Equal(t, vec.Vec2Float{X: 32, Y: 48}, loaded.Spawn)
	assert.Equal(t, m.Grid.Tiles(), loaded.Grid.Tiles(), "сетка восстановлена побайтно")
	assert.Equal(t, 0, loaded.PlayerCount())
}

func TestLoadMissingMap(t *testing.T) {
	store := setupTestStore(t)

	_, _, err := store.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsBadSnapshot(t *testing.T) {
	store := setupTestStore(t)

	snap := SnapshotOf(world.NewMap("bad", world.Bordered(4, 4), world.DefaultSpawn()))
	snap.Tiles = snap.Tiles[:3]
	assert.ErrorIs(t, store.Save(snap), world.ErrBadTiles)
}

func TestListAndDelete(t *testing.T) {
	store := setupTestStore(t)

	for _, name := range []string{"b", "a"} {
		require.NoError(t, store.SaveMap(world.NewMap(name, world.Bordered(5, 5), world.DefaultSpawn())))
	}

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "a", metas[0].Name)
	assert.Equal(t, 5, metas[0].Width)

	require.NoError(t, store.Delete("a"))
	_, _, err = store.Load("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewMapStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveMap(world.NewMap("main", world.Bordered(8, 8), world.DefaultSpawn())))
	require.NoError(t, store.Close())

	_, _, err = store.Load("main")
	assert.ErrorIs(t, err, ErrNotReady, "закрытое хранилище не читается")

	reopened, err := NewMapStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	m, _, err := reopened.Load("main")
	require.NoError(t, err)
	w, h := m.Grid.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
}
