package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
)

var (
	ErrNotFound = errors.New("storage: map not found")
	ErrNotReady = errors.New("storage: store is closed")
)

const keyPrefix = "map:"

// MapMeta описание сохранённой карты без содержимого сетки
type MapMeta struct {
	Name    string        `json:"name"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Spawn   vec.Vec2Float `json:"spawn"`
	SavedAt time.Time     `json:"saved_at"`
}

// Snapshot неизменяемая копия карты для сохранения
type Snapshot struct {
	MapMeta
	Tiles []byte
}

// SnapshotOf снимает копию карты. Вызывается из игрового цикла.
func SnapshotOf(m *world.Map) Snapshot {
	return Snapshot{
		MapMeta: MapMeta{
			Name:   m.Name,
			Width:  m.Grid.Width(),
			Height: m.Grid.Height(),
			Spawn:  m.Spawn,
		},
		Tiles: m.Grid.Tiles(),
	}
}

// MapStore хранилище карт поверх BadgerDB.
// Для каждой карты две записи: map:<name>:meta (JSON) и map:<name>:tiles.
type MapStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewMapStore открывает (или создаёт) базу в dataPath/maps
func NewMapStore(dataPath string) (*MapStore, error) {
	dbPath := filepath.Join(dataPath, "maps")
	opts := badger.DefaultOptions(dbPath).
		WithCompression(options.ZSTD).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &MapStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		logger:  logging.GetComponentLogger("storage"),
	}, nil
}

// Close закрывает хранилище
func (s *MapStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}
	s.isReady = false
	return s.db.Close()
}

func metaKey(name string) []byte  { return []byte(keyPrefix + name + ":meta") }
func tilesKey(name string) []byte { return []byte(keyPrefix + name + ":tiles") }

// Save записывает снимок карты одной транзакцией
func (s *MapStore) Save(snap Snapshot) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}
	if len(snap.Tiles) != snap.Width*snap.Height*world.LayerCount {
		return fmt.Errorf("%w: %d байт для %dx%d", world.ErrBadTiles, len(snap.Tiles), snap.Width, snap.Height)
	}

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(snap.MapMeta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации карты: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(snap.Name), meta); err != nil {
			return err
		}
		return txn.Set(tilesKey(snap.Name), snap.Tiles)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения карты %s: %w", snap.Name, err)
	}

	s.logger.Debug("карта %s сохранена (%dx%d)", snap.Name, snap.Width, snap.Height)
	return nil
}

// SaveMap снимает копию карты, сохраняет её и сбрасывает Dirty
func (s *MapStore) SaveMap(m *world.Map) error {
	if err := s.Save(SnapshotOf(m)); err != nil {
		return err
	}
	m.Dirty = false
	return nil
}

// Load читает карту. Игроков в ней нет.
func (s *MapStore) Load(name string) (*world.Map, MapMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, MapMeta{}, ErrNotReady
	}

	var meta MapMeta
	var tiles []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		item, err = txn.Get(tilesKey(name))
		if err != nil {
			return err
		}
		tiles, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, MapMeta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, MapMeta{}, fmt.Errorf("ошибка чтения карты %s: %w", name, err)
	}

	grid, err := world.LoadTiles(meta.Width, meta.Height, tiles)
	if err != nil {
		return nil, MapMeta{}, fmt.Errorf("карта %s повреждена: %w", name, err)
	}
	return world.NewMap(meta.Name, grid, meta.Spawn), meta, nil
}

// List возвращает описания всех сохранённых карт, отсортированные по имени
func (s *MapStore) List() ([]MapMeta, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	var out []MapMeta
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(keyPrefix), PrefetchValues: true, PrefetchSize: 16})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), ":meta") {
				continue
			}
			var meta MapMeta
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода карт: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete удаляет карту; отсутствие карты не ошибка
func (s *MapStore) Delete(name string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(name)); err != nil {
			return err
		}
		return txn.Delete(tilesKey(name))
	})
}
