package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY CHALLENGE QUERY
// Small steps every day: three answered questions earn the daily reward.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyChallengeQuery selects the user.
type GetDailyChallengeQuery struct {
	UserID string
}

// DailyChallengeDTO is today's challenge progress.
type DailyChallengeDTO struct {
	Date      string `json:"date"`
	Answered  int    `json:"answered"`
	Threshold int    `json:"threshold"`
	Remaining int    `json:"remaining"`
	Completed bool   `json:"completed"`
	RewardXP  int    `json:"reward_xp"`
}

// GetDailyChallengeHandler handles GetDailyChallengeQuery.
type GetDailyChallengeHandler struct {
	sessions *session.Registry
}

// NewGetDailyChallengeHandler creates a new GetDailyChallengeHandler.
func NewGetDailyChallengeHandler(sessions *session.Registry) *GetDailyChallengeHandler {
	return &GetDailyChallengeHandler{sessions: sessions}
}

// Handle executes the query.
func (h *GetDailyChallengeHandler) Handle(ctx context.Context, q GetDailyChallengeQuery) (*DailyChallengeDTO, error) {
	if q.UserID == "" {
		return nil, errors.New("get_daily_challenge: user_id is required")
	}

	sess, err := h.sessions.Open(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_daily_challenge: %w", err)
	}

	st := sess.DailyChallenge()
	return &DailyChallengeDTO{
		Date:      timeutil.FormatDate(st.Date),
		Answered:  st.Answered,
		Threshold: st.Threshold,
		Remaining: st.Remaining(),
		Completed: st.Completed,
		RewardXP:  st.RewardXP,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST ACHIEVEMENTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListAchievementsQuery selects the user.
type ListAchievementsQuery struct {
	UserID string
}

// AchievementDTO is one catalog entry with the user's state.
type AchievementDTO struct {
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// ListAchievementsResult is the full catalog in display order.
type ListAchievementsResult struct {
	Achievements []AchievementDTO `json:"achievements"`
	Unlocked     int              `json:"unlocked"`
	Total        int              `json:"total"`
}

// ListAchievementsHandler handles ListAchievementsQuery.
type ListAchievementsHandler struct {
	sessions *session.Registry
}

// NewListAchievementsHandler creates a new ListAchievementsHandler.
func NewListAchievementsHandler(sessions *session.Registry) *ListAchievementsHandler {
	return &ListAchievementsHandler{sessions: sessions}
}

// Handle executes the query.
func (h *ListAchievementsHandler) Handle(ctx context.Context, q ListAchievementsQuery) (*ListAchievementsResult, error) {
	if q.UserID == "" {
		return nil, errors.New("list_achievements: user_id is required")
	}

	sess, err := h.sessions.Open(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_achievements: %w", err)
	}

	statuses := sess.Achievements()
	res := &ListAchievementsResult{
		Achievements: make([]AchievementDTO, 0, len(statuses)),
		Total:        len(statuses),
	}
	for _, st := range statuses {
		dto := AchievementDTO{
			Name:        st.Name,
			Title:       st.Title(),
			Description: st.Description,
			Unlocked:    st.Unlocked,
		}
		// Achievements carried over from storage have no timestamp.
		if st.Unlocked && !st.UnlockedAt.IsZero() {
			at := st.UnlockedAt
			dto.UnlockedAt = &at
		}
		if st.Unlocked {
			res.Unlocked++
		}
		res.Achievements = append(res.Achievements, dto)
	}
	return res, nil
}
