package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN COMMAND
// Authenticates by email and password and opens the user's session.
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand contains the credentials.
type LoginCommand struct {
	Email    string
	Password string
}

// Validate validates the command.
func (c LoginCommand) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("email is required")
	}
	return nil
}

// LoginResult contains the authenticated user and their session.
type LoginResult struct {
	User    *learner.User
	Session *session.Session

	// Token is set when the handler has a TokenIssuer.
	Token     string
	ExpiresAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LoginHandler handles the LoginCommand.
type LoginHandler struct {
	directory learner.Directory
	hasher    PasswordHasher
	sessions  *session.Registry
	tokens    TokenIssuer
	log       *logger.Logger
}

// NewLoginHandler creates a new LoginHandler. tokens may be nil.
func NewLoginHandler(
	directory learner.Directory,
	hasher PasswordHasher,
	sessions *session.Registry,
	tokens TokenIssuer,
	log *logger.Logger,
) *LoginHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LoginHandler{
		directory: directory,
		hasher:    hasher,
		sessions:  sessions,
		tokens:    tokens,
		log:       log,
	}
}

// Handle executes the login command.
//
// Returns shared.ErrUnknownCredential when no user has the email and
// shared.ErrInvalidPassword when the password does not match.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("login: %w", shared.WrapError("learner", "Authenticate", shared.ErrValidation, err.Error(), err))
	}

	user, ok := h.directory.FindByEmail(ctx, strings.TrimSpace(cmd.Email))
	if !ok {
		h.log.Info("login failed", logger.Email(cmd.Email), logger.String("reason", "unknown email"))
		return nil, fmt.Errorf("login: %w", shared.ErrUnknownCredential)
	}

	if !h.hasher.Verify(user.Password, cmd.Password) {
		h.log.Info("login failed", logger.UserID(user.ID), logger.String("reason", "invalid password"))
		return nil, fmt.Errorf("login: %w", shared.ErrInvalidPassword)
	}

	// An already open session is reused so its in-memory counters survive.
	sess, err := h.sessions.Open(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	result := &LoginResult{User: sess.User(), Session: sess}

	if h.tokens != nil {
		token, expiresAt, err := h.tokens.Issue(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		result.Token = token
		result.ExpiresAt = expiresAt
	}

	h.log.Info("user logged in", logger.UserID(user.ID))
	return result, nil
}
