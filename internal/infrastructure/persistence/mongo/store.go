// Package mongo implements docstore.Store on MongoDB. Each logical
// collection maps to a MongoDB collection and the document id is stored as
// _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds MongoDB connection settings.
type Config struct {
	URI             string
	Database        string
	ConnectTimeout  time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	RetryWrites     bool
	RetryReads      bool
}

// DefaultConfig returns local development settings.
func DefaultConfig() Config {
	return Config{
		URI:             "mongodb://localhost:27017",
		Database:        "codevia",
		ConnectTimeout:  10 * time.Second,
		MaxPoolSize:     20,
		MinPoolSize:     1,
		MaxConnIdleTime: 5 * time.Minute,
		RetryWrites:     true,
		RetryReads:      true,
	}
}

// clientOptions builds driver options from the config.
func (c Config) clientOptions() *options.ClientOptions {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	return options.Client().
		ApplyURI(c.URI).
		SetServerAPIOptions(serverAPI).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize).
		SetMaxConnIdleTime(c.MaxConnIdleTime).
		SetConnectTimeout(c.ConnectTimeout).
		SetRetryWrites(c.RetryWrites).
		SetRetryReads(c.RetryReads)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is a docstore.Store backed by MongoDB.
type Store struct {
	cfg Config

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// NewStore creates an unconnected store.
func NewStore(cfg Config) *Store {
	if cfg.Database == "" {
		cfg.Database = DefaultConfig().Database
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	return &Store{cfg: cfg}
}

// Name implements docstore.Store.
func (s *Store) Name() string { return docstore.DriverMongo }

// Connect implements docstore.Store. Calling it on a connected store is a
// no-op.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	client, err := mongo.Connect(s.cfg.clientOptions())
	if err != nil {
		return fmt.Errorf("mongo: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo: ping: %w", err)
	}

	s.client = client
	s.db = client.Database(s.cfg.Database)
	return nil
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	client, _, err := s.handles()
	if err != nil {
		return err
	}
	return client.Ping(ctx, nil)
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}

// Save implements docstore.Store.
func (s *Store) Save(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.replace(ctx, collection, id, rec)
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.replace(ctx, collection, id, rec)
}

func (s *Store) replace(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	coll, err := s.collection(collection)
	if err != nil {
		return err
	}

	rec.ID = id
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, rec, opts); err != nil {
		return fmt.Errorf("mongo: replace %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.UserRecord, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return docstore.UserRecord{}, err
	}
	coll, err := s.collection(collection)
	if err != nil {
		return docstore.UserRecord{}, err
	}

	var rec docstore.UserRecord
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.UserRecord{}, docstore.ErrDocumentNotFound
		}
		return docstore.UserRecord{}, fmt.Errorf("mongo: get %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// GetAll implements docstore.Store.
func (s *Store) GetAll(ctx context.Context, collection string) ([]docstore.UserRecord, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo: find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	records := []docstore.UserRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("mongo: decode %s: %w", collection, err)
	}
	return records, nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	coll, err := s.collection(collection)
	if err != nil {
		return err
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) handles() (*mongo.Client, *mongo.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, nil, docstore.ErrNotConnected
	}
	return s.client, s.db, nil
}

func (s *Store) collection(name string) (*mongo.Collection, error) {
	_, db, err := s.handles()
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

var _ docstore.Store = (*Store)(nil)
