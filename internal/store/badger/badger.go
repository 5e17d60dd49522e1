package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Storage is a durable key/value store on BadgerDB. Writes are synced to disk
// before Set returns.
type Storage struct {
	db *badger.DB
}

// Config configures the Badger store.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Storage, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger: empty path")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("badger: create dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Get(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger: get %q: %w", key, err)
	}
	return string(value), true, nil
}

func (s *Storage) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badger: set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
