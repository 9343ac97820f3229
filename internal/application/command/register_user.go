package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates a learner account at level 1 with no XP. The directory mirrors the
// new record to the document store in the background.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data to create an account.
type RegisterUserCommand struct {
	Username string
	Email    string

	// Password is the raw password; only its hash is stored.
	Password string
}

// Validate applies the registration rules and returns the first failure.
func (c RegisterUserCommand) Validate() error {
	return learner.ValidateRegistration(c.Username, c.Email, c.Password)
}

// RegisterUserResult contains the created user.
type RegisterUserResult struct {
	User         *learner.User
	RegisteredAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	directory      learner.Directory
	hasher         PasswordHasher
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(
	directory learner.Directory,
	hasher PasswordHasher,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *RegisterUserHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterUserHandler{
		directory:      directory,
		hasher:         hasher,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	email := strings.TrimSpace(cmd.Email)
	if _, exists := h.directory.FindByEmail(ctx, email); exists {
		return nil, fmt.Errorf("register_user: %w", shared.ErrDuplicateUser)
	}

	credential, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	user, err := learner.NewUser(learner.NewUserParams{
		Username: cmd.Username,
		Email:    email,
		Password: credential,
	})
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	// Create re-checks the email under the directory lock.
	if err := h.directory.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	if err := h.eventPublisher.Publish(shared.NewUserRegisteredEvent(user.ID, user.Username, user.Email)); err != nil {
		h.log.Warn("failed to publish registration", logger.UserID(user.ID), logger.Err(err))
	}

	return &RegisterUserResult{
		User:         user.Clone(),
		RegisteredAt: user.CreatedAt,
	}, nil
}
