// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/quiz"
	"github.com/codevia/codevia/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST SKILLS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListSkillsQuery lists the skill catalog for a user.
type ListSkillsQuery struct {
	UserID string
}

// SkillDTO is one skill with the user's state.
type SkillDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RequiredXP  int    `json:"required_xp"`
	Unlocked    bool   `json:"unlocked"`

	// Unlockable is true when the user could unlock it right now.
	Unlockable bool `json:"unlockable"`
}

// ListSkillsHandler handles ListSkillsQuery.
type ListSkillsHandler struct {
	sessions *session.Registry
}

// NewListSkillsHandler creates a new ListSkillsHandler.
func NewListSkillsHandler(sessions *session.Registry) *ListSkillsHandler {
	return &ListSkillsHandler{sessions: sessions}
}

// Handle executes the query.
func (h *ListSkillsHandler) Handle(ctx context.Context, q ListSkillsQuery) ([]SkillDTO, error) {
	if q.UserID == "" {
		return nil, errors.New("list_skills: user_id is required")
	}

	sess, err := h.sessions.Open(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_skills: %w", err)
	}

	xp := sess.User().XP
	views := sess.Skills()
	out := make([]SkillDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toSkillDTO(v, int(xp)))
	}
	return out, nil
}

func toSkillDTO(v skill.View, xp int) SkillDTO {
	return SkillDTO{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		RequiredXP:  int(v.RequiredXP),
		Unlocked:    v.Unlocked,
		Unlockable:  !v.Unlocked && xp >= int(v.RequiredXP),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ QUERIES
// Questions are returned without their correct answers.
// ══════════════════════════════════════════════════════════════════════════════

// QuizSummaryDTO describes a quiz in the catalog listing.
type QuizSummaryDTO struct {
	ID           string `json:"id"`
	Skill        string `json:"skill"`
	Questions    int    `json:"questions"`
	PassingScore int    `json:"passing_score"`
}

// QuestionDTO is one question as shown to the player.
type QuestionDTO struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuizDTO is a playable quiz.
type QuizDTO struct {
	QuizSummaryDTO
	Items []QuestionDTO `json:"items"`
}

// QuizCatalogHandler serves ListQuizzes and GetQuiz.
type QuizCatalogHandler struct {
	catalog *quiz.Catalog
}

// NewQuizCatalogHandler creates a new QuizCatalogHandler.
func NewQuizCatalogHandler(catalog *quiz.Catalog) *QuizCatalogHandler {
	return &QuizCatalogHandler{catalog: catalog}
}

// ListQuizzes returns every quiz in catalog order.
func (h *QuizCatalogHandler) ListQuizzes(ctx context.Context) []QuizSummaryDTO {
	quizzes := h.catalog.All()
	out := make([]QuizSummaryDTO, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, toQuizSummary(q))
	}
	return out
}

// GetQuizQuery selects a quiz by skill name or quiz id.
type GetQuizQuery struct {
	Skill string
}

// GetQuiz returns the playable quiz. Returns shared.ErrQuizNotFound for an
// unknown skill.
func (h *QuizCatalogHandler) GetQuiz(ctx context.Context, q GetQuizQuery) (*QuizDTO, error) {
	if strings.TrimSpace(q.Skill) == "" {
		return nil, errors.New("get_quiz: skill is required")
	}

	found, err := h.catalog.Find(q.Skill)
	if err != nil {
		return nil, fmt.Errorf("get_quiz: %w", err)
	}

	dto := &QuizDTO{QuizSummaryDTO: toQuizSummary(found)}
	for i, question := range found.Questions {
		dto.Items = append(dto.Items, QuestionDTO{
			Index:   i,
			Text:    question.Text(),
			Options: question.Options(),
		})
	}
	return dto, nil
}

func toQuizSummary(q *quiz.Quiz) QuizSummaryDTO {
	return QuizSummaryDTO{
		ID:           q.ID,
		Skill:        q.Skill,
		Questions:    q.Len(),
		PassingScore: q.PassingScore,
	}
}
