package docstore

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	connected   bool
}

type memCollection struct {
	order []string
	docs  map[string]UserRecord
}

// NewMemoryStore creates an empty, unconnected store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return DriverMemory }

// Connect implements Store.
func (s *MemoryStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return ErrNotConnected
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, collection, id string, rec UserRecord) error {
	return s.put(ctx, collection, id, rec)
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, rec UserRecord) error {
	return s.put(ctx, collection, id, rec)
}

func (s *MemoryStore) put(ctx context.Context, collection, id string, rec UserRecord) error {
	if err := ValidateKey(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	c, ok := s.collections[collection]
	if !ok {
		c = &memCollection{docs: make(map[string]UserRecord)}
		s.collections[collection] = c
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	rec.ID = id
	rec.UnlockedSkills = nonNil(rec.UnlockedSkills)
	rec.Achievements = nonNil(rec.Achievements)
	c.docs[id] = rec
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (UserRecord, error) {
	if err := ValidateKey(collection, id); err != nil {
		return UserRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return UserRecord{}, ErrNotConnected
	}

	c, ok := s.collections[collection]
	if !ok {
		return UserRecord{}, ErrDocumentNotFound
	}
	rec, ok := c.docs[id]
	if !ok {
		return UserRecord{}, ErrDocumentNotFound
	}
	return copyRecord(rec), nil
}

// GetAll implements Store. Documents come back in first-write order.
func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	c, ok := s.collections[collection]
	if !ok {
		return []UserRecord{}, nil
	}
	out := make([]UserRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, copyRecord(c.docs[id]))
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, exists := c.docs[id]; !exists {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.docs)
	}
	return 0
}

func copyRecord(r UserRecord) UserRecord {
	r.UnlockedSkills = nonNil(r.UnlockedSkills)
	r.Achievements = nonNil(r.Achievements)
	return r
}
