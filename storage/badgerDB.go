package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("not found")

// DBStorage is a key-value store backed by BadgerDB.
type DBStorage struct {
	db     *badger.DB
	config BadgerDBConfig
	logger *zap.Logger

	stopGC chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

// Open opens (or creates) the database described by config.
func Open(config BadgerDBConfig, logger *zap.Logger) (*DBStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DataDir == "" {
			return nil, fmt.Errorf("badger data dir is required")
		}
		opts = badger.DefaultOptions(filepath.Join(config.DataDir, "badgerdb"))
	}
	if config.DisableLogging {
		opts.Logger = nil
	}
	opts.SyncWrites = config.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	s := &DBStorage{db: db, config: config, logger: logger}
	if config.GCInterval > 0 && !config.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.gcLoop(config.GCInterval)
	}
	return s, nil
}

func (s *DBStorage) gcLoop(interval time.Duration) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				s.logger.Warn("BadgerDB GC failed", zap.Error(err))
			}
		}
	}
}

// RunGC reclaims value log space. Nothing to collect is not an error.
func (s *DBStorage) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// Close stops background GC and closes the database.
func (s *DBStorage) Close() error {
	var err error
	s.once.Do(func() {
		if s.stopGC != nil {
			close(s.stopGC)
			<-s.gcDone
		}
		err = s.db.Close()
	})
	return err
}

// Put stores a key-value pair in the database
func (s *DBStorage) Put(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Get retrieves a value by key, returning ErrNotFound if absent.
func (s *DBStorage) Get(key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return val, err
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *DBStorage) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Has reports whether key exists.
func (s *DBStorage) Has(key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetByPrefix returns every key-value pair whose key starts with prefix.
func (s *DBStorage) GetByPrefix(prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key())] = v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}
	return out, nil
}

// DeleteByPrefix deletes all keys with the given prefix
func (s *DBStorage) DeleteByPrefix(prefix string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to collect keys for deletion: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete key: %w", err)
			}
		}
		return nil
	})
}

// PutObject stores obj as JSON.
func (s *DBStorage) PutObject(key string, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Put(key, data)
}

// GetObject decodes the JSON value at key into obj.
func (s *DBStorage) GetObject(key string, obj any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
