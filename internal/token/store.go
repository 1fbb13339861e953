// Package token owns the access token for the expense API: a runtime copy
// and an optional durable copy on disk, kept consistent on every change.
package token

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the current access token. Implementations keep the runtime and
// durable copies in sync; the token itself is opaque and never validated
// here.
type Store interface {
	// Get returns the current token, or "" when unauthenticated.
	Get() string
	// Set replaces the token in memory and in durable storage.
	Set(tok string) error
	// Clear removes the token from memory and from durable storage.
	Clear() error
}

// FileStore is a Store persisting the token to a single file. An empty path
// disables persistence, leaving a purely in-memory store for contexts
// without durable storage.
type FileStore struct {
	mu    sync.Mutex
	path  string
	token string
}

// NewFileStore creates a store backed by the file at path, loading any
// previously persisted token.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		s.token = string(data)
	case os.IsNotExist(err):
		// No saved token, start unauthenticated.
	default:
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return s, nil
}

// DefaultPath returns the standard token file location under the XDG data
// directory, creating the parent directory if needed.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	dir := filepath.Join(dataDir, "spendwise")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return filepath.Join(dir, "token"), nil
}

// Get implements Store.
func (s *FileStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set implements Store.
func (s *FileStore) Set(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	if s.path == "" {
		return nil
	}
	if err := os.WriteFile(s.path, []byte(tok), 0600); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore creates a MemoryStore holding tok.
func NewMemoryStore(tok string) *MemoryStore {
	return &MemoryStore{token: tok}
}

// Get implements Store.
func (s *MemoryStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set implements Store.
func (s *MemoryStore) Set(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
