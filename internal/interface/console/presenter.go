package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Formats query results and command outcomes as plain terminal text.
// ══════════════════════════════════════════════════════════════════════════════

// Presenter renders views for the console.
type Presenter struct {
	barWidth int
}

// NewPresenter creates a presenter.
func NewPresenter() *Presenter {
	return &Presenter{barWidth: 10}
}

// ─────────────────────────────────────────────────────────────────────────────
// MENUS
// ─────────────────────────────────────────────────────────────────────────────

// MainMenu lists the choices before login.
var MainMenu = []string{"Register", "Login", "Password Reset", "Settings", "Exit"}

// UserMenu lists the choices after login.
var UserMenu = []string{
	"View Skills",
	"Unlock Skill",
	"Play Quizzes",
	"View Daily Challenge",
	"View Achievements",
	"Account Settings",
	"Logout",
}

// AccountMenu lists the account settings choices.
var AccountMenu = []string{"Change Password", "View Account Info", "Delete Account", "Back"}

// FormatMenu renders a numbered menu.
func (p *Presenter) FormatMenu(title string, items []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n=== %s ===\n", title))
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// SKILLS & QUIZZES
// ─────────────────────────────────────────────────────────────────────────────

// FormatSkills renders the skill tree.
func (p *Presenter) FormatSkills(skills []query.SkillDTO) string {
	var sb strings.Builder
	sb.WriteString("\nSkills:\n")
	for _, s := range skills {
		status := "🔒 locked"
		switch {
		case s.Unlocked:
			status = "✅ unlocked"
		case s.Unlockable:
			status = "🔓 ready to unlock"
		}
		sb.WriteString(fmt.Sprintf("- %s (%d XP) %s\n", s.Name, s.RequiredXP, status))
		if s.Description != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", s.Description))
		}
	}
	return sb.String()
}

// FormatUnlock renders the result of unlocking a skill.
func (p *Presenter) FormatUnlock(res *command.UnlockSkillResult) string {
	return fmt.Sprintf("✅ Unlocked %s! +%d XP (total %d XP, level %d)\n",
		res.Skill.Name, res.BonusXP, int(res.XP), int(res.Level))
}

// FormatQuizList renders the quiz catalog as a numbered list.
func (p *Presenter) FormatQuizList(quizzes []query.QuizSummaryDTO) string {
	var sb strings.Builder
	sb.WriteString("\nAvailable quizzes:\n")
	for i, q := range quizzes {
		sb.WriteString(fmt.Sprintf("%d. %s (%d questions)\n", i+1, q.Skill, q.Questions))
	}
	return sb.String()
}

// FormatQuestion renders one question with 1-based options.
func (p *Presenter) FormatQuestion(q query.QuestionDTO, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\nQ%d/%d: %s\n", q.Index+1, total, q.Text))
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("  %d) %s\n", i+1, opt))
	}
	return sb.String()
}

// FormatQuizResult renders a graded submission.
func (p *Presenter) FormatQuizResult(out *command.SubmitQuizResult) string {
	var sb strings.Builder
	r := out.Result

	sb.WriteString(fmt.Sprintf("\nScore: %d/%d (%d%%)\n", r.Score, r.Total, r.Percent))
	for i, o := range r.Outcomes {
		mark := "❌"
		switch {
		case o.Correct:
			mark = "✅"
		case !o.Answered:
			mark = "⏭"
		}
		sb.WriteString(fmt.Sprintf("  %s Q%d\n", mark, i+1))
	}
	sb.WriteString(fmt.Sprintf("You earned %d XP.\n", r.EarnedXP))

	if out.ChallengeCompleted {
		sb.WriteString(fmt.Sprintf("🏆 Daily challenge completed! +%d XP\n", out.ChallengeReward.Amount))
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// PROGRESS
// ─────────────────────────────────────────────────────────────────────────────

// FormatChallenge renders today's challenge.
func (p *Presenter) FormatChallenge(dto *query.DailyChallengeDTO) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\nDaily challenge (%s)\n", dto.Date))
	sb.WriteString(fmt.Sprintf("Answer %d questions today.\n", dto.Threshold))
	sb.WriteString(fmt.Sprintf("%s %d/%d\n", p.formatProgressBar(dto.Answered, dto.Threshold), dto.Answered, dto.Threshold))
	if dto.Completed {
		sb.WriteString("✅ Completed\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d to go, reward %d XP\n", dto.Remaining, dto.RewardXP))
	}
	return sb.String()
}

// FormatAchievements renders all achievements with the user's state.
func (p *Presenter) FormatAchievements(res *query.ListAchievementsResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\nAchievements (%d/%d):\n", res.Unlocked, res.Total))
	for _, a := range res.Achievements {
		if a.Unlocked {
			sb.WriteString(fmt.Sprintf("- %s\n", a.Title))
		} else {
			sb.WriteString(fmt.Sprintf("- 🔒 %s: %s\n", a.Name, a.Description))
		}
	}
	return sb.String()
}

// FormatLevelUp renders a level-up notification.
func (p *Presenter) FormatLevelUp(level int) string {
	return fmt.Sprintf("🎉 Level up! You are now level %d.\n", level)
}

// FormatAchievementUnlocked renders an achievement notification.
func (p *Presenter) FormatAchievementUnlocked(title string) string {
	return fmt.Sprintf("🏅 Achievement unlocked: %s\n", title)
}

// formatProgressBar draws a fixed-width bar for done out of total.
func (p *Presenter) formatProgressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * p.barWidth / total
	}
	if filled > p.barWidth {
		filled = p.barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", p.barWidth-filled) + "]"
}

// ─────────────────────────────────────────────────────────────────────────────
// ACCOUNT
// ─────────────────────────────────────────────────────────────────────────────

// FormatAccount renders the account info view.
func (p *Presenter) FormatAccount(dto *query.AccountDTO) string {
	var sb strings.Builder
	sb.WriteString("\nAccount\n")
	sb.WriteString(fmt.Sprintf("Username: %s\n", dto.Username))
	sb.WriteString(fmt.Sprintf("Email: %s\n", dto.Email))
	sb.WriteString(fmt.Sprintf("ID: %s\n", dto.ID))
	sb.WriteString(fmt.Sprintf("Level: %d\n", dto.Level))
	sb.WriteString(fmt.Sprintf("XP: %d (next level at %d)\n", dto.XP, dto.NextLevelXP))
	sb.WriteString(fmt.Sprintf("Skills: %s\n", p.formatList(dto.UnlockedSkills)))
	sb.WriteString(fmt.Sprintf("Achievements: %s\n", p.formatList(dto.Achievements)))
	return sb.String()
}

// FormatSettings renders the store and directory status.
func (p *Presenter) FormatSettings(dto *query.DirectoryStatsDTO) string {
	connected := "not connected"
	if dto.StoreConnected {
		connected = "connected"
	}
	return fmt.Sprintf("\nSettings\nStore: %s (%s)\nUsers: %d\nLevel policy: %s\n",
		dto.StoreDriver, connected, dto.Users, dto.LevelPolicy)
}

func (p *Presenter) formatList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// ─────────────────────────────────────────────────────────────────────────────
// ERRORS
// ─────────────────────────────────────────────────────────────────────────────

// FormatError renders a failed operation. Domain errors show their message
// only.
func (p *Presenter) FormatError(err error) string {
	msg := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	return fmt.Sprintf("❌ %s\n", msg)
}
