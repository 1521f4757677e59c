package memory

import "sync"

// CollectionStore is an in-memory implementation of local.Backend. Contents
// live as long as the process.
type CollectionStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		items: make(map[string][]byte),
	}
}

func (s *CollectionStore) Load(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *CollectionStore) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[name] = append([]byte(nil), data...)
	return nil
}

func (s *CollectionStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, name)
	return nil
}
