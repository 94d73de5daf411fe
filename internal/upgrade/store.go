package upgrade

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/conneroisu/loam/internal/errors"
)

// Store persists small key/value state across process invocations, scoped
// to the invoking user and machine.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// FileStore keeps state in a JSON file under the user cache directory.
// There is no inter-process locking; concurrent invocations may race on a
// key, at worst causing one extra network check.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore places the state file in the per-user cache directory.
func DefaultFileStore() (*FileStore, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "locating user cache directory", err)
	}
	return NewFileStore(filepath.Join(cacheDir, "loam", "state.json")), nil
}

// Get returns the value stored under key, if any.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := state[key]
	return value, ok, nil
}

// Set writes the value under key, creating the file as needed.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	state[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "creating state directory", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.NewIOError(errors.ErrCodeInternalError, "writing state file", err).
			WithLocation(s.path, 0, 0)
	}
	return nil
}

// read loads the state map, treating a missing or corrupt file as empty so
// a damaged cache never blocks the tool.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.NewIOError(errors.ErrCodeInternalError, "reading state file", err).
			WithLocation(s.path, 0, 0)
	}

	state := map[string]string{}
	if err := json.Unmarshal(data, &state); err != nil {
		return map[string]string{}, nil
	}
	return state, nil
}

// MemoryStore is an in-process Store for tests and ephemeral use.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key, if any.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

// Set writes the value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
