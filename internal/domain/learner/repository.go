package learner

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implemented in infrastructure/persistence/directory.
// ══════════════════════════════════════════════════════════════════════════════

// Directory stores users keyed by id and email.
//
// Lookups return copies: mutating a returned user has no effect until it is
// passed back through Update. Absence is reported by the boolean, not an error.
type Directory interface {
	// Create stores a new user, assigning an id when u.ID is empty.
	// Returns shared.ErrDuplicateUser if the email is taken.
	Create(ctx context.Context, u *User) error

	// FindByEmail returns the first user with a matching email.
	FindByEmail(ctx context.Context, email string) (*User, bool)

	// FindByID returns the user with the given id.
	FindByID(ctx context.Context, id string) (*User, bool)

	// Update overwrites the stored user's mutable fields.
	// Returns shared.ErrUserNotFound if the user is unknown.
	Update(ctx context.Context, u *User) error

	// Delete removes a user.
	// Returns shared.ErrUserNotFound if the user is unknown.
	Delete(ctx context.Context, id string) error

	// All returns every user in creation order.
	All(ctx context.Context) []*User

	// Count returns the number of users.
	Count(ctx context.Context) int
}

// IDGenerator produces identifiers for new users.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string { return f() }
