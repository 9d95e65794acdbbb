// Package userstore is a thin, swappable adapter implementing the
// UserRepository port spec.md §1 calls out as an external collaborator:
// resolving a gateway's advertised (uniqueId, token) pair to the userId
// that owns it. This in-memory, YAML-seeded implementation stands in for
// whatever persistent store a deployment actually uses.
package userstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Binding is one (uniqueId, token) -> userId mapping, as loaded from the
// bindings file.
type Binding struct {
	UniqueID string `yaml:"unique_id"`
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
}

// Store implements internal/ingest.Authenticator against an in-memory set
// of bindings.
type Store struct {
	mu       sync.RWMutex
	bindings map[string]string // uniqueId+"\x00"+token -> userId
}

// New builds an empty Store.
func New() *Store {
	return &Store{bindings: make(map[string]string)}
}

// Load reads a YAML file of bindings (a list under the `bindings:` key)
// into a new Store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("userstore: reading bindings file: %w", err)
	}

	var doc struct {
		Bindings []Binding `yaml:"bindings"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("userstore: parsing bindings file: %w", err)
	}

	s := New()
	for _, b := range doc.Bindings {
		s.Add(b.UniqueID, b.Token, b.UserID)
	}
	return s, nil
}

// Add registers a binding, overwriting any existing entry for the same
// (uniqueId, token) pair.
func (s *Store) Add(uniqueID, token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[key(uniqueID, token)] = userID
}

// Authenticate implements internal/ingest.Authenticator.
func (s *Store) Authenticate(ctx context.Context, uniqueID, token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.bindings[key(uniqueID, token)]
	return userID, ok
}

func key(uniqueID, token string) string {
	return uniqueID + "\x00" + token
}
