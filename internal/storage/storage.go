// Package storage persists small key/value client state, such as the
// credential token, across process restarts.
package storage

import (
	"errors"
	"fmt"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// Store is a string key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Keys returns all stored keys.
	Keys() ([]string, error)

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrNotFound = models.ErrStorageNotFound
	ErrCorrupt  = errors.New("storage file is corrupt")
)

// Open creates the store selected by cfg.
func Open(cfg *config.StorageConfig, logger *events.Logger) (Store, error) {
	if logger == nil {
		logger = events.NewNopLogger()
	}

	switch cfg.Backend {
	case "file":
		return NewJSONStore(cfg.Path, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
