package store

import (
	"fmt"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/store/badger"
	"storefront/internal/store/memory"
)

// Storage persists string values under string keys. Implementations must
// make Set durable before returning.
type Storage interface {
	domain.KVStore
}

// Open returns the store selected by cfg.Type.
func Open(cfg config.StoreConfig) (Storage, error) {
	switch cfg.Type {
	case "badger", "":
		s, err := badger.Open(badger.Config{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown store: %s", cfg.Type)
	}
}
