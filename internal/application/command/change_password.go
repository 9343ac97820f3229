package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE PASSWORD COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ChangePasswordCommand replaces a user's password.
type ChangePasswordCommand struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// Validate checks the new password before the current one is verified:
// confirmation first, then length.
func (c ChangePasswordCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if c.NewPassword != c.ConfirmPassword {
		return shared.ErrPasswordMismatch
	}
	return learner.ValidatePassword(c.NewPassword)
}

// ChangePasswordHandler handles the ChangePasswordCommand.
type ChangePasswordHandler struct {
	sessions *session.Registry
	hasher   PasswordHasher
	log      *logger.Logger
}

// NewChangePasswordHandler creates a new ChangePasswordHandler.
func NewChangePasswordHandler(sessions *session.Registry, hasher PasswordHasher, log *logger.Logger) *ChangePasswordHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChangePasswordHandler{sessions: sessions, hasher: hasher, log: log}
}

// Handle executes the change password command. A wrong current password
// returns shared.ErrInvalidPassword.
func (h *ChangePasswordHandler) Handle(ctx context.Context, cmd ChangePasswordCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("change_password: %w", err)
	}

	sess, err := h.sessions.Open(ctx, cmd.UserID)
	if err != nil {
		return fmt.Errorf("change_password: %w", err)
	}

	if !h.hasher.Verify(sess.User().Password, cmd.CurrentPassword) {
		return fmt.Errorf("change_password: %w", shared.ErrInvalidPassword)
	}

	credential, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return fmt.Errorf("change_password: %w", err)
	}
	if err := sess.SetPassword(ctx, credential); err != nil {
		return fmt.Errorf("change_password: %w", err)
	}

	h.log.Info("password changed", logger.UserID(cmd.UserID))
	return nil
}
