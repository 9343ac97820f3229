package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/application/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ COMMAND
// Grades a quiz attempt. Answers are 0-based option indices, one per
// question; quiz.Skipped (-1) leaves a question unanswered.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizCommand contains a quiz attempt.
type SubmitQuizCommand struct {
	UserID string

	// Skill names the quiz; the quiz id is accepted too.
	Skill   string
	Answers []int
}

// Validate validates the command.
func (c SubmitQuizCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(c.Skill) == "" {
		return errors.New("skill is required")
	}
	return nil
}

// SubmitQuizResult is the graded attempt and its side effects.
type SubmitQuizResult = session.QuizOutcome

// SubmitQuizHandler handles the SubmitQuizCommand.
type SubmitQuizHandler struct {
	sessions *session.Registry
}

// NewSubmitQuizHandler creates a new SubmitQuizHandler.
func NewSubmitQuizHandler(sessions *session.Registry) *SubmitQuizHandler {
	return &SubmitQuizHandler{sessions: sessions}
}

// Handle executes the submit quiz command.
func (h *SubmitQuizHandler) Handle(ctx context.Context, cmd SubmitQuizCommand) (*SubmitQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_quiz: validation failed: %w", err)
	}

	sess, err := h.sessions.Open(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz: %w", err)
	}

	out, err := sess.SubmitQuiz(ctx, cmd.Skill, cmd.Answers)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz: %w", err)
	}
	return out, nil
}
