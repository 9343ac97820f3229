// Package security provides password hashing and session tokens for Codevia.
package security

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// PASSWORD HASHER
// ══════════════════════════════════════════════════════════════════════════════

// PasswordHasher hashes and verifies user passwords with bcrypt.
//
// Records imported from an older store may carry the password in plain
// text. Verify falls back to a constant-time comparison for any value that
// is not a bcrypt hash, so such users can still log in; the next password
// change stores a proper hash.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt cost in use.
func (h *PasswordHasher) Cost() int { return h.cost }

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify reports whether password matches the stored credential.
func (h *PasswordHasher) Verify(stored, password string) bool {
	if stored == "" {
		return false
	}
	if !IsHash(stored) {
		return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	return err == nil
}

// NeedsRehash reports whether stored should be replaced by a fresh hash.
func (h *PasswordHasher) NeedsRehash(stored string) bool {
	if !IsHash(stored) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(stored))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// IsHash reports whether s looks like a bcrypt hash.
func IsHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			_, err := bcrypt.Cost([]byte(s))
			return err == nil
		}
	}
	return false
}
