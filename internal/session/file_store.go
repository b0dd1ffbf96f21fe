package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileStore persists values in a TOML file so they survive restarts.
// Every Set and Remove rewrites the whole file with permissions 0600.
type FileStore struct {
	path    string
	mu      sync.Mutex
	corrupt bool
}

// ErrCorruptSession is returned by Get when the session file cannot be decoded.
var ErrCorruptSession = errors.New("session file is corrupt")

// NewFileStore creates a FileStore backed by path. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Set stores value under key. A session file that cannot be decoded is
// replaced, since its tokens are unusable anyway.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.loadForWrite()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove deletes key. A session file that cannot be decoded is rewritten
// without it.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok && !s.corrupt {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return values, nil
	}
	if _, err := toml.DecodeFile(s.path, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	return values, nil
}

// loadForWrite is load, except a corrupt file yields an empty map and marks
// the store so the next save overwrites it.
func (s *FileStore) loadForWrite() (map[string]string, error) {
	values, err := s.load()
	s.corrupt = errors.Is(err, ErrCorruptSession)
	if s.corrupt {
		return make(map[string]string), nil
	}
	return values, err
}

func (s *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(values); encErr != nil {
		f.Close()
		return encErr
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.corrupt = false
	return nil
}
