package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACCOUNT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAccountQuery selects the user.
type GetAccountQuery struct {
	UserID string
}

// AccountDTO is the account view. The credential is never exposed.
type AccountDTO struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Level          int       `json:"level"`
	XP             int       `json:"xp"`
	NextLevelXP    int       `json:"next_level_xp"`
	UnlockedSkills []string  `json:"unlocked_skills"`
	Achievements   []string  `json:"achievements"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetAccountHandler handles GetAccountQuery.
type GetAccountHandler struct {
	sessions *session.Registry
}

// NewGetAccountHandler creates a new GetAccountHandler.
func NewGetAccountHandler(sessions *session.Registry) *GetAccountHandler {
	return &GetAccountHandler{sessions: sessions}
}

// Handle executes the query.
func (h *GetAccountHandler) Handle(ctx context.Context, q GetAccountQuery) (*AccountDTO, error) {
	if q.UserID == "" {
		return nil, errors.New("get_account: user_id is required")
	}

	sess, err := h.sessions.Open(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_account: %w", err)
	}

	u := sess.User()
	return &AccountDTO{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Level:          int(u.Level),
		XP:             int(u.XP),
		NextLevelXP:    nextLevelXP(h.sessions.Rules(), u),
		UnlockedSkills: append([]string{}, u.UnlockedSkills...),
		Achievements:   append([]string{}, u.Achievements...),
		CreatedAt:      u.CreatedAt,
	}, nil
}

// nextLevelXP is the XP value at which the next level is reached, in the
// units of the active policy: total XP for cumulative, XP within the
// current level for rollover.
func nextLevelXP(rules *session.Rules, u *learner.User) int {
	if rules.Progression.Policy().Name() == learner.PolicyRollover {
		return int(u.Level.Threshold())
	}
	return int(u.Level) * learner.XPPerLevel
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY STATS QUERY
// Backs the authentication settings view: which store is configured,
// whether it is reachable, and how many users are known.
// ══════════════════════════════════════════════════════════════════════════════

// StoreStatus reports on the configured document store.
type StoreStatus interface {
	Driver() string
	Connected(ctx context.Context) bool
}

// DirectoryStatsDTO is the settings view.
type DirectoryStatsDTO struct {
	StoreDriver    string `json:"store_driver"`
	StoreConnected bool   `json:"store_connected"`
	Users          int    `json:"users"`
	OpenSessions   int    `json:"open_sessions"`
	LevelPolicy    string `json:"level_policy"`
}

// DirectoryStatsHandler handles the directory stats query.
type DirectoryStatsHandler struct {
	directory learner.Directory
	sessions  *session.Registry
	status    StoreStatus
}

// NewDirectoryStatsHandler creates a new DirectoryStatsHandler. status may
// be nil when no store is configured.
func NewDirectoryStatsHandler(directory learner.Directory, sessions *session.Registry, status StoreStatus) *DirectoryStatsHandler {
	return &DirectoryStatsHandler{directory: directory, sessions: sessions, status: status}
}

// Handle executes the query.
func (h *DirectoryStatsHandler) Handle(ctx context.Context) *DirectoryStatsDTO {
	dto := &DirectoryStatsDTO{
		StoreDriver:  "none",
		Users:        h.directory.Count(ctx),
		OpenSessions: h.sessions.Len(),
		LevelPolicy:  h.sessions.Rules().Progression.Policy().Name(),
	}
	if h.status != nil {
		dto.StoreDriver = h.status.Driver()
		dto.StoreConnected = h.status.Connected(ctx)
	}
	return dto
}
