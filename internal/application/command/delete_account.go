package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE ACCOUNT COMMAND
// Removes the user from the directory, which deletes the stored document in
// the background, and closes the user's session.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmDeletion is the confirmation word required by DeleteAccountCommand.
const ConfirmDeletion = "yes"

// ErrDeletionNotConfirmed is returned when the confirmation is not "yes".
var ErrDeletionNotConfirmed = shared.NewDomainError("learner", "Delete", shared.ErrValidation, "account deletion cancelled")

// DeleteAccountCommand deletes a user account.
type DeleteAccountCommand struct {
	UserID       string
	Confirmation string
	Password     string
}

// Validate validates the command.
func (c DeleteAccountCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if !strings.EqualFold(strings.TrimSpace(c.Confirmation), ConfirmDeletion) {
		return ErrDeletionNotConfirmed
	}
	return nil
}

// DeleteAccountHandler handles the DeleteAccountCommand.
type DeleteAccountHandler struct {
	directory      learner.Directory
	sessions       *session.Registry
	hasher         PasswordHasher
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewDeleteAccountHandler creates a new DeleteAccountHandler.
func NewDeleteAccountHandler(
	directory learner.Directory,
	sessions *session.Registry,
	hasher PasswordHasher,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DeleteAccountHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DeleteAccountHandler{
		directory:      directory,
		sessions:       sessions,
		hasher:         hasher,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

// Handle executes the delete account command.
func (h *DeleteAccountHandler) Handle(ctx context.Context, cmd DeleteAccountCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("delete_account: %w", err)
	}

	user, ok := h.directory.FindByID(ctx, cmd.UserID)
	if !ok {
		return fmt.Errorf("delete_account: %w", shared.ErrUserNotFound)
	}
	if !h.hasher.Verify(user.Password, cmd.Password) {
		return fmt.Errorf("delete_account: %w", shared.ErrInvalidPassword)
	}

	if err := h.directory.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete_account: %w", err)
	}
	h.sessions.Close(user.ID)

	if err := h.eventPublisher.Publish(shared.NewUserDeletedEvent(user.ID, user.Email)); err != nil {
		h.log.Warn("failed to publish deletion", logger.UserID(user.ID), logger.Err(err))
	}

	h.log.Info("account deleted", logger.UserID(user.ID))
	return nil
}
