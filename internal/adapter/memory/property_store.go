package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pscheid92/karmapulse/internal/domain"
)

// PropertyStore keeps properties in process memory for single-instance dev
// mode. Contents are lost on restart.
type PropertyStore struct {
	mu     sync.RWMutex
	scopes map[domain.Scope]map[string]string
}

func NewPropertyStore() *PropertyStore {
	return &PropertyStore{scopes: make(map[domain.Scope]map[string]string)}
}

func (s *PropertyStore) GetProperty(_ context.Context, scope domain.Scope, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.scopes[scope][key]
	if !ok {
		return "", domain.ErrPropertyNotFound
	}
	return value, nil
}

func (s *PropertyStore) SetProperty(_ context.Context, scope domain.Scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, ok := s.scopes[scope]
	if !ok {
		properties = make(map[string]string)
		s.scopes[scope] = properties
	}
	properties[key] = value
	return nil
}

func (s *PropertyStore) PropertyKeys(_ context.Context, scope domain.Scope, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.scopes[scope] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
