package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/mindpeers/client/internal/model/chat"
)

// IdentityKey is the fixed key the logged-in identity is stored under.
const IdentityKey = "mindpeers_user"

// Store persists the logged-in identity. Load reports false when nobody is
// logged in. Writes are last-write-wins.
type Store interface {
	Load() (chat.Identity, bool, error)
	Save(identity chat.Identity) error
	Clear() error
}

// MemoryStore implements Store in memory, for tests and throwaway sessions.
type MemoryStore struct {
	mu       sync.Mutex
	identity *chat.Identity
}

// NewMemoryStore returns a MemoryStore, optionally preloaded with an identity.
func NewMemoryStore(initial *chat.Identity) *MemoryStore {
	s := &MemoryStore{}
	if initial != nil {
		copied := *initial
		s.identity = &copied
	}
	return s
}

func (s *MemoryStore) Load() (chat.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return chat.Identity{}, false, nil
	}
	return *s.identity, true, nil
}

func (s *MemoryStore) Save(identity chat.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	return nil
}

// FileStore keeps the identity in a small YAML document:
//
//	mindpeers_user:
//	  user_id: "42"
//	  email: someone@example.com
type FileStore struct {
	path string
}

type identityDocument struct {
	User *chat.Identity `yaml:"mindpeers_user,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (chat.Identity, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return chat.Identity{}, false, nil
	}
	if err != nil {
		return chat.Identity{}, false, fmt.Errorf("read identity file: %w", err)
	}

	var doc identityDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return chat.Identity{}, false, fmt.Errorf("parse identity file %s: %w", s.path, err)
	}
	if doc.User == nil || !doc.User.Valid() {
		return chat.Identity{}, false, nil
	}
	return *doc.User, true, nil
}

func (s *FileStore) Save(identity chat.Identity) error {
	data, err := yaml.Marshal(identityDocument{User: &identity})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}
