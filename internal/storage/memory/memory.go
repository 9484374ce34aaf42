package memory

import (
	"context"
	"sync"

	apperrors "github.com/tim48-robot/disgitbot/internal/errors"
	"github.com/tim48-robot/disgitbot/internal/storage"
)

type key struct {
	scope      storage.Scope
	collection string
}

// memoryStorage keeps documents in process memory
type memoryStorage struct {
	mu   sync.RWMutex
	docs map[key]map[string][]byte
}

// NewMemoryStorage creates an empty in-memory document store
func NewMemoryStorage() storage.DocumentStore {
	return &memoryStorage{docs: map[key]map[string][]byte{}}
}

func (s *memoryStorage) Get(_ context.Context, scope storage.Scope, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key{scope, collection}][id]
	if !ok {
		return nil, apperrors.NewNotFoundError(collection + "/" + id)
	}
	return append([]byte(nil), data...), nil
}

func (s *memoryStorage) Set(_ context.Context, scope storage.Scope, collection, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{scope, collection}
	if s.docs[k] == nil {
		s.docs[k] = map[string][]byte{}
	}
	s.docs[k][id] = append([]byte(nil), data...)
	return nil
}

func (s *memoryStorage) List(_ context.Context, scope storage.Scope, collection string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.docs[key{scope, collection}]))
	for id, data := range s.docs[key{scope, collection}] {
		out[id] = append([]byte(nil), data...)
	}
	return out, nil
}

func (s *memoryStorage) Delete(_ context.Context, scope storage.Scope, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[key{scope, collection}], id)
	return nil
}

func (s *memoryStorage) Migrate(context.Context) error { return nil }

func (s *memoryStorage) Close() error { return nil }
