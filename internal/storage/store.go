package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned by Get when the key has never been stored or was deleted.
var ErrNotFound = errors.New("key not found")

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store defines the interface for the dashboard's local key/value state.
type Store interface {
	Put(key string, v interface{}) error
	Get(key string, v interface{}) error
	Delete(key string) error
	Keys() ([]string, error)
}

// LocalStore implements Store with one msgpack-encoded file per key.
type LocalStore struct {
	mu  sync.RWMutex
	dir string
}

// NewLocalStore creates a new LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return filepath.Join(s.dir, key+".msgpack"), nil
}

// Put encodes v and replaces the value stored under key.
func (s *LocalStore) Put(key string, v interface{}) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", key, err)
	}

	return nil
}

// Get decodes the value stored under key into v.
func (s *LocalStore) Get(key string, v interface{}) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *LocalStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys.
func (s *LocalStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.msgpack"))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		keys = append(keys, name[:len(name)-len(".msgpack")])
	}
	return keys, nil
}
