package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/TheMichaelB/songdeck/internal/events"
)

// JSONStore keeps all keys in a single JSON file.
type JSONStore struct {
	path   string
	logger *events.Logger

	mu sync.RWMutex
}

// NewJSONStore creates a file-backed store at path.
func NewJSONStore(path string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &JSONStore{
		path:   path,
		logger: logger.WithField("component", "json_storage"),
	}, nil
}

// Get reads a single key.
func (s *JSONStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes a single key.
func (s *JSONStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadForUpdate()
	if err != nil {
		return err
	}

	values[key] = value
	s.logger.WithField("key", key).Debug("Saving value")
	return s.save(values)
}

// Remove deletes a single key.
func (s *JSONStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadForUpdate()
	if err != nil {
		return err
	}

	if _, ok := values[key]; !ok {
		return nil
	}

	delete(values, key)
	s.logger.WithField("key", key).Debug("Removing value")
	return s.save(values)
}

// Keys lists stored keys in sorted order.
func (s *JSONStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, err := s.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// Helper methods

func (s *JSONStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage file: %w", err)
	}

	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, ErrCorrupt
	}
	return values, nil
}

// loadForUpdate starts over from an empty map when the file is corrupt, so
// a damaged file never blocks logout or a fresh login.
func (s *JSONStore) loadForUpdate() (map[string]string, error) {
	values, err := s.load()
	if err == ErrCorrupt {
		s.logger.WithField("path", s.path).Warn("Discarding corrupt storage file")
		return map[string]string{}, nil
	}
	return values, err
}

func (s *JSONStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}

	// Write atomically
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename storage file: %w", err)
	}

	return nil
}
