package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
)

// Store is a docstore.Store on Redis. Each document is a JSON string at
// DocumentKey; the collection's ids live in the set at IndexKey.
type Store struct {
	cfg Config

	mu    sync.RWMutex
	cache *Cache
}

// NewStore creates an unconnected store.
func NewStore(cfg Config) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultConfig().DialTimeout
	}
	return &Store{cfg: cfg}
}

// Name implements docstore.Store.
func (s *Store) Name() string { return docstore.DriverRedis }

// Connect implements docstore.Store.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		return nil
	}
	cache, err := NewCache(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("redis: connect %s: %w", s.cfg.Addr(), err)
	}
	s.cache = cache
	return nil
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	cache, err := s.conn()
	if err != nil {
		return err
	}
	return cache.Ping(ctx)
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	err := s.cache.Close()
	s.cache = nil
	return err
}

// Save implements docstore.Store.
func (s *Store) Save(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.put(ctx, collection, id, rec)
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.put(ctx, collection, id, rec)
}

func (s *Store) put(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	cache, err := s.conn()
	if err != nil {
		return err
	}

	rec.ID = id
	key := DocumentKey(s.cfg.KeyPrefix, collection, id)
	if err := cache.SetIndexed(ctx, key, rec, IndexKey(s.cfg.KeyPrefix, collection), id); err != nil {
		return fmt.Errorf("redis: put %s: %w", key, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.UserRecord, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return docstore.UserRecord{}, err
	}
	cache, err := s.conn()
	if err != nil {
		return docstore.UserRecord{}, err
	}

	var rec docstore.UserRecord
	if err := cache.Get(ctx, DocumentKey(s.cfg.KeyPrefix, collection, id), &rec); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return docstore.UserRecord{}, docstore.ErrDocumentNotFound
		}
		return docstore.UserRecord{}, fmt.Errorf("redis: get %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// GetAll implements docstore.Store. Records are ordered by id; ids whose
// value has gone missing are skipped.
func (s *Store) GetAll(ctx context.Context, collection string) ([]docstore.UserRecord, error) {
	cache, err := s.conn()
	if err != nil {
		return nil, err
	}

	ids, err := cache.SMembers(ctx, IndexKey(s.cfg.KeyPrefix, collection))
	if err != nil {
		return nil, fmt.Errorf("redis: list %s: %w", collection, err)
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = DocumentKey(s.cfg.KeyPrefix, collection, id)
	}

	records := make([]docstore.UserRecord, 0, len(keys))
	err = cache.MGetJSON(ctx, keys, func(_ string, data []byte) error {
		var rec docstore.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: load %s: %w", collection, err)
	}
	return records, nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	cache, err := s.conn()
	if err != nil {
		return err
	}

	key := DocumentKey(s.cfg.KeyPrefix, collection, id)
	if err := cache.DeleteIndexed(ctx, key, IndexKey(s.cfg.KeyPrefix, collection), id); err != nil {
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) conn() (*Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return nil, docstore.ErrNotConnected
	}
	return s.cache, nil
}

var _ docstore.Store = (*Store)(nil)
