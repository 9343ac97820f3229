// Package shared contains common domain types, errors and events used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrInvalidFormat = errors.New("invalid format")

	// Authentication errors
	ErrUnauthenticated = errors.New("authentication failed")

	// Progression errors
	ErrAlreadyUnlocked = errors.New("already unlocked")
	ErrInsufficientXP  = errors.New("insufficient experience points")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "learner", "skill", "quiz"
	Op      string // Operation that failed, e.g., "Create", "Unlock"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner domain errors
var (
	ErrUserNotFound      = NewDomainError("learner", "Find", ErrNotFound, "user not found")
	ErrDuplicateUser     = NewDomainError("learner", "Create", ErrAlreadyExists, "user with this email already exists")
	ErrEmptyUsername     = NewDomainError("learner", "Validate", ErrValidation, "username cannot be empty")
	ErrInvalidEmail      = NewDomainError("learner", "Validate", ErrValidation, "invalid email format")
	ErrPasswordTooShort  = NewDomainError("learner", "Validate", ErrValidation, "password must be at least 6 characters")
	ErrPasswordMismatch  = NewDomainError("learner", "ChangePassword", ErrValidation, "passwords do not match")
	ErrInvalidPassword   = NewDomainError("learner", "Authenticate", ErrUnauthenticated, "invalid password")
	ErrUnknownCredential = NewDomainError("learner", "Authenticate", ErrUnauthenticated, "user not found")
)

// Skill domain errors
var (
	ErrSkillNotFound        = NewDomainError("skill", "Find", ErrNotFound, "skill not found")
	ErrSkillAlreadyUnlocked = NewDomainError("skill", "Unlock", ErrAlreadyUnlocked, "skill already unlocked")
)

// Quiz domain errors
var (
	ErrQuizNotFound = NewDomainError("quiz", "Find", ErrNotFound, "no quiz available for this skill")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsAuthentication checks if the error is an authentication failure.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsAlreadyUnlocked checks if the error reports a repeated unlock.
func IsAlreadyUnlocked(err error) bool {
	return errors.Is(err, ErrAlreadyUnlocked)
}

// IsInsufficientXP checks if the error reports a missing XP threshold.
func IsInsufficientXP(err error) bool {
	return errors.Is(err, ErrInsufficientXP)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable)
}
