// Package store persists the loop collection in BadgerDB as a single JSON
// blob under a fixed key. Saves always rewrite the whole collection; the
// newest save wins. There is no delta persistence and no transaction spanning
// multiple saves.
package store

import (
	"encoding/json"
	"errors"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/loopyhq/loopy/internal/services"
)

// collectionKey is the fixed storage identifier for the loop collection.
const collectionKey = "loopy_loops"

// BadgerStore implements services.CollectionStore on an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ services.CollectionStore = (*BadgerStore)(nil)

// Open opens a persistent store at path, creating the directory if needed.
func Open(path string, logger *zap.Logger) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("store path required")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path).WithLogger(nil).WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

// OpenInMemory opens a throwaway store for tests.
func OpenInMemory(logger *zap.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

func New(db *badger.DB, logger *zap.Logger) *BadgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgerStore{db: db, logger: logger}
}

func (s *BadgerStore) Close() error { return s.db.Close() }

// Load reads the stored collection. Absent or unparseable data yields
// ok=false rather than an error: startup must never fail on bad state, the
// caller falls back to the built-in defaults.
func (s *BadgerStore) Load() ([]services.Loop, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(collectionKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var loops []services.Loop
	if err := json.Unmarshal(raw, &loops); err != nil {
		s.logger.Warn("stored loop collection is unparseable, ignoring it", zap.Error(err))
		return nil, false, nil
	}
	return loops, true, nil
}

// Save serializes the entire collection and overwrites the previous blob.
func (s *BadgerStore) Save(loops []services.Loop) error {
	data, err := json.Marshal(loops)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(collectionKey), data)
	})
}
