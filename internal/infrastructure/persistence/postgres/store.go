package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT STORE
// ══════════════════════════════════════════════════════════════════════════════

const (
	upsertDocumentSQL = `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	getDocumentSQL = `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	listDocumentsSQL = `SELECT data FROM documents WHERE collection = $1 ORDER BY created_at, id`

	deleteDocumentSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
)

// Store is a docstore.Store on PostgreSQL. Connect opens the pool and runs
// the embedded migrations.
type Store struct {
	cfg Config

	mu   sync.RWMutex
	conn *Connection
}

// NewStore creates an unconnected store.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Name implements docstore.Store.
func (s *Store) Name() string { return docstore.DriverPostgres }

// Connect implements docstore.Store.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && !s.conn.IsClosed() {
		return nil
	}

	conn, err := NewConnection(ctx, s.cfg)
	if err != nil {
		return err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return err
	}
	s.conn = conn
	return nil
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	return conn.Ping(ctx)
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Save implements docstore.Store.
func (s *Store) Save(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.upsert(ctx, collection, id, rec)
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	return s.upsert(ctx, collection, id, rec)
}

func (s *Store) upsert(ctx context.Context, collection, id string, rec docstore.UserRecord) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	conn, err := s.connection()
	if err != nil {
		return err
	}

	rec.ID = id
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres: encode %s/%s: %w", collection, id, err)
	}

	if _, err := conn.Exec(ctx, upsertDocumentSQL, collection, id, data); err != nil {
		return fmt.Errorf("postgres: upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.UserRecord, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return docstore.UserRecord{}, err
	}
	conn, err := s.connection()
	if err != nil {
		return docstore.UserRecord{}, err
	}

	var data []byte
	if err := conn.QueryRow(ctx, getDocumentSQL, collection, id).Scan(&data); err != nil {
		if IsNoRows(err) {
			return docstore.UserRecord{}, docstore.ErrDocumentNotFound
		}
		return docstore.UserRecord{}, fmt.Errorf("postgres: get %s/%s: %w", collection, id, err)
	}

	var rec docstore.UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return docstore.UserRecord{}, fmt.Errorf("postgres: decode %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// GetAll implements docstore.Store. Records come back in insertion order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]docstore.UserRecord, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, listDocumentsSQL, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", collection, err)
	}
	defer rows.Close()

	records := []docstore.UserRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", collection, err)
		}
		var rec docstore.UserRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("postgres: decode %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	conn, err := s.connection()
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, deleteDocumentSQL, collection, id); err != nil {
		return fmt.Errorf("postgres: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) connection() (*Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, docstore.ErrNotConnected
	}
	return s.conn, nil
}

var _ docstore.Store = (*Store)(nil)
