// Package storage persists the engine's knowledge base (a cached copy
// of the opening book file, so it need not be re-parsed on every
// launch) and cumulative search statistics across runs, backed by
// BadgerDB.
package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyBookBlob = "book:blob"
	keyBookPath = "book:path"
	keyStats    = "stats:search"
)

// SearchStats accumulates search activity across the life of the
// stored database, independent of any single process's lifetime.
type SearchStats struct {
	Searches  int64         `json:"searches"`
	TotalNodes uint64       `json:"total_nodes"`
	TotalTime time.Duration `json:"total_time"`
	LastRun   time.Time     `json:"last_run"`
}

// AverageNPS returns the lifetime average nodes-per-second, or 0 if no
// time has been recorded yet.
func (s *SearchStats) AverageNPS() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.TotalNodes) / s.TotalTime.Seconds()
}

// Storage wraps BadgerDB for persistent storage of the knowledge base
// and search statistics.
type Storage struct {
	db *badger.DB
}

// NewStorage opens (creating if necessary) the engine's database in the
// platform-specific data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveBook caches the raw bytes of a loaded Polyglot book file under
// the given source path, so a future launch can skip re-reading the
// file if the path is unchanged.
func (s *Storage) SaveBook(path string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyBookPath), []byte(path)); err != nil {
			return err
		}
		return txn.Set([]byte(keyBookBlob), data)
	})
}

// LoadBook returns the cached book bytes and the source path they were
// read from, or (nil, "", nil) if nothing has been cached.
func (s *Storage) LoadBook() (data []byte, path string, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		pathItem, err := txn.Get([]byte(keyBookPath))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if path, err = stringValue(pathItem); err != nil {
			return err
		}

		blobItem, err := txn.Get([]byte(keyBookBlob))
		if err == badger.ErrKeyNotFound {
			path = ""
			return nil
		}
		if err != nil {
			return err
		}
		return blobItem.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	return data, path, err
}

func stringValue(item *badger.Item) (string, error) {
	var s string
	err := item.Value(func(val []byte) error {
		s = string(val)
		return nil
	})
	return s, err
}

// LoadStats loads cumulative search statistics, returning zero-valued
// stats if none have been recorded yet.
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := &SearchStats{}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// RecordSearch folds one completed search's node count and duration
// into the lifetime statistics.
func (s *Storage) RecordSearch(nodes uint64, elapsed time.Duration) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Searches++
	stats.TotalNodes += nodes
	stats.TotalTime += elapsed
	stats.LastRun = time.Now()

	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}
