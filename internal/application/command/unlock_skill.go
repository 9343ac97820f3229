package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK SKILL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UnlockSkillCommand unlocks a catalog skill for a user.
type UnlockSkillCommand struct {
	UserID    string
	SkillName string
}

// Validate validates the command.
func (c UnlockSkillCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(c.SkillName) == "" {
		return errors.New("skill name is required")
	}
	return nil
}

// UnlockSkillResult describes the unlocked skill and the bonus it paid.
type UnlockSkillResult struct {
	Skill     skill.Skill
	BonusXP   int
	LeveledUp bool
	XP        learner.XP
	Level     learner.Level
}

// UnlockSkillHandler handles the UnlockSkillCommand.
type UnlockSkillHandler struct {
	sessions *session.Registry
}

// NewUnlockSkillHandler creates a new UnlockSkillHandler.
func NewUnlockSkillHandler(sessions *session.Registry) *UnlockSkillHandler {
	return &UnlockSkillHandler{sessions: sessions}
}

// Handle executes the unlock skill command.
func (h *UnlockSkillHandler) Handle(ctx context.Context, cmd UnlockSkillCommand) (*UnlockSkillResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("unlock_skill: validation failed: %w", err)
	}

	sess, err := h.sessions.Open(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("unlock_skill: %w", err)
	}

	out, err := sess.UnlockSkill(ctx, cmd.SkillName)
	if err != nil {
		return nil, fmt.Errorf("unlock_skill: %w", err)
	}

	return &UnlockSkillResult{
		Skill:     out.Skill,
		BonusXP:   out.Bonus.Amount,
		LeveledUp: out.Bonus.LeveledUp(),
		XP:        out.Bonus.Total,
		Level:     out.Bonus.ToLevel,
	}, nil
}
