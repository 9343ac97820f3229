// Package docstore defines the document store used to mirror the user
// directory, the typed record it stores, an in-memory implementation and the
// asynchronous Mirror that writes to it without blocking callers.
//
// Backends:
//   - MemoryStore (this package): fallback and tests
//   - persistence/mongo: MongoDB collection per logical collection
//   - persistence/redis: JSON values plus a set index
//   - persistence/postgres: jsonb rows in a documents table
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/codevia/codevia/internal/domain/learner"
)

// UsersCollection is the collection holding user records.
const UsersCollection = "users"

// Store driver names.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var (
	// ErrDocumentNotFound is returned by Get when no document has the id.
	ErrDocumentNotFound = errors.New("docstore: document not found")

	// ErrNotConnected is returned when an operation runs before Connect.
	ErrNotConnected = errors.New("docstore: not connected")

	// ErrEmptyID is returned for blank collection names or document ids.
	ErrEmptyID = errors.New("docstore: collection and id are required")
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE PORT
// ══════════════════════════════════════════════════════════════════════════════

// Store is a collection/id keyed document store.
//
// Save and Update both write the full record and create it when absent.
// Delete of a missing document is not an error.
type Store interface {
	// Name returns the driver name.
	Name() string

	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	Save(ctx context.Context, collection, id string, rec UserRecord) error
	Get(ctx context.Context, collection, id string) (UserRecord, error)
	GetAll(ctx context.Context, collection string) ([]UserRecord, error)
	Update(ctx context.Context, collection, id string, rec UserRecord) error
	Delete(ctx context.Context, collection, id string) error
}

// ValidateKey checks collection and id.
func ValidateKey(collection, id string) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER RECORD
// ══════════════════════════════════════════════════════════════════════════════

// UserRecord is the stored form of a user. Field names match documents
// written by earlier clients, so existing collections load unchanged.
type UserRecord struct {
	ID              string    `json:"id" bson:"_id"`
	Username        string    `json:"username" bson:"username"`
	Email           string    `json:"email" bson:"email"`
	Password        string    `json:"password" bson:"password"`
	ExperiencePoint int       `json:"experiencePoint" bson:"experiencePoint"`
	UserLevel       int       `json:"userLevel" bson:"userLevel"`
	FirebaseUID     string    `json:"firebaseUid,omitempty" bson:"firebaseUid,omitempty"`
	UnlockedSkills  []string  `json:"unlockedSkills" bson:"unlockedSkills"`
	Achievements    []string  `json:"achievements" bson:"achievements"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// RecordFromUser builds the stored form of u.
func RecordFromUser(u *learner.User) UserRecord {
	return UserRecord{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		Password:        u.Password,
		ExperiencePoint: int(u.XP),
		UserLevel:       int(u.Level),
		FirebaseUID:     u.FirebaseUID,
		UnlockedSkills:  nonNil(u.UnlockedSkills),
		Achievements:    nonNil(u.Achievements),
		UpdatedAt:       u.UpdatedAt,
	}
}

// ToUser converts a stored record back into a user. The level is taken as
// stored; callers normalize it against the active level policy.
func (r UserRecord) ToUser() *learner.User {
	level := learner.Level(r.UserLevel)
	if level < learner.MinLevel {
		level = learner.MinLevel
	}
	xp := learner.XP(r.ExperiencePoint)
	if xp < 0 {
		xp = 0
	}
	return &learner.User{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		Password:       r.Password,
		XP:             xp,
		Level:          level,
		FirebaseUID:    r.FirebaseUID,
		UnlockedSkills: nonNil(r.UnlockedSkills),
		Achievements:   nonNil(r.Achievements),
		CreatedAt:      r.UpdatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// nonNil copies s, never returning nil so records encode empty sets as [].
func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
