package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PASSWORD RESET COMMAND
// Verifies the account exists and records the request. No mail transport is
// wired; delivery belongs to the identity provider.
// ══════════════════════════════════════════════════════════════════════════════

// ErrPasswordResetUnavailable is returned while the feature is switched off.
var ErrPasswordResetUnavailable = shared.NewDomainError("learner", "PasswordReset", shared.ErrValidation,
	"password reset is only available with external authentication")

// RequestPasswordResetCommand requests a reset for an email address.
type RequestPasswordResetCommand struct {
	Email string
}

// Validate validates the command.
func (c RequestPasswordResetCommand) Validate() error {
	return learner.ValidateEmail(strings.TrimSpace(c.Email))
}

// RequestPasswordResetResult confirms the request.
type RequestPasswordResetResult struct {
	UserID string
	Email  string
}

// RequestPasswordResetHandler handles the RequestPasswordResetCommand.
type RequestPasswordResetHandler struct {
	directory learner.Directory
	gate      PasswordResetGate
	log       *logger.Logger
}

// NewRequestPasswordResetHandler creates a new RequestPasswordResetHandler.
// A nil gate keeps the feature off.
func NewRequestPasswordResetHandler(directory learner.Directory, gate PasswordResetGate, log *logger.Logger) *RequestPasswordResetHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RequestPasswordResetHandler{directory: directory, gate: gate, log: log}
}

// Handle executes the request password reset command.
func (h *RequestPasswordResetHandler) Handle(ctx context.Context, cmd RequestPasswordResetCommand) (*RequestPasswordResetResult, error) {
	if h.gate == nil || !h.gate.PasswordResetEnabled() {
		return nil, fmt.Errorf("password_reset: %w", ErrPasswordResetUnavailable)
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("password_reset: %w", err)
	}

	email := strings.TrimSpace(cmd.Email)
	user, ok := h.directory.FindByEmail(ctx, email)
	if !ok {
		return nil, fmt.Errorf("password_reset: %w", shared.ErrUnknownCredential)
	}

	h.log.Info("password reset requested", logger.UserID(user.ID), logger.Email(user.Email))
	return &RequestPasswordResetResult{UserID: user.ID, Email: user.Email}, nil
}
