// Package command contains write operations (CQRS - Commands).
package command

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Implemented in infrastructure/security and config.
// ══════════════════════════════════════════════════════════════════════════════

// PasswordHasher turns raw passwords into stored credentials and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// TokenIssuer issues session tokens for front-ends that need them.
type TokenIssuer interface {
	Issue(userID, email string) (token string, expiresAt time.Time, err error)
}

// PasswordResetGate reports whether password reset requests are accepted.
type PasswordResetGate interface {
	PasswordResetEnabled() bool
}
