package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"name":    "Codevia API",
		"version": s.config.Version,
		"endpoints": gin.H{
			"health":       "/health",
			"register":     "/api/v1/auth/register",
			"login":        "/api/v1/auth/login",
			"skills":       "/api/v1/skills",
			"quizzes":      "/api/v1/quizzes",
			"challenge":    "/api/v1/challenge",
			"achievements": "/api/v1/achievements",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if status.Version == "" {
		status.Version = s.config.Version
	}
	if !status.Healthy {
		writeJSON(c, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(c, http.StatusOK, status)
}

// handleReady handles the readiness check endpoint (for Kubernetes).
func (s *Server) handleReady(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Ready {
		writeJSON(c, http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ready"})
}

// handleLive handles the liveness check endpoint (for Kubernetes).
func (s *Server) handleLive(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// userView is the public form of a user.
type userView struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	UnlockedSkills []string  `json:"unlocked_skills"`
	Achievements   []string  `json:"achievements"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserView(u *learner.User) userView {
	return userView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		XP:             int(u.XP),
		Level:          int(u.Level),
		UnlockedSkills: append([]string{}, u.UnlockedSkills...),
		Achievements:   append([]string{}, u.Achievements...),
		CreatedAt:      u.CreatedAt,
	}
}

// handleRegister creates an account.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.deps.RegisterUser.Handle(c.Request.Context(), command.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeJSON(c, http.StatusCreated, toUserView(res.User))
}

// handleLogin authenticates and returns a bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.deps.Login.Handle(c.Request.Context(), command.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       toUserView(res.User),
	})
}

// handlePasswordReset records a reset request.
func (s *Server) handlePasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.deps.RequestPasswordReset.Handle(c.Request.Context(), command.RequestPasswordResetCommand{Email: req.Email})
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeJSON(c, http.StatusAccepted, gin.H{
		"email":   res.Email,
		"message": "Password reset requested. Check your email.",
	})
}

// handleSettings reports the directory and store status.
func (s *Server) handleSettings(c *gin.Context) {
	writeJSON(c, http.StatusOK, s.deps.DirectoryStats.Handle(c.Request.Context()))
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type deleteAccountRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// handleMe returns the account of the authenticated user.
func (s *Server) handleMe(c *gin.Context) {
	dto, err := s.deps.Account.Handle(c.Request.Context(), query.GetAccountQuery{UserID: currentUserID(c)})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dto)
}

// handleChangePassword replaces the password.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !s.bind(c, &req) {
		return
	}

	err := s.deps.ChangePassword.Handle(c.Request.Context(), command.ChangePasswordCommand{
		UserID:          currentUserID(c),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDeleteAccount deletes the authenticated user's account.
func (s *Server) handleDeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if !s.bind(c, &req) {
		return
	}

	err := s.deps.DeleteAccount.Handle(c.Request.Context(), command.DeleteAccountCommand{
		UserID:       currentUserID(c),
		Confirmation: req.Confirmation,
		Password:     req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type unlockSkillRequest struct {
	Skill string `json:"skill" binding:"required"`
}

// handleListSkills lists the skill tree for the user.
func (s *Server) handleListSkills(c *gin.Context) {
	skills, err := s.deps.ListSkills.Handle(c.Request.Context(), query.ListSkillsQuery{UserID: currentUserID(c)})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSONWithMeta(c, http.StatusOK, skills, &ResponseMeta{TotalCount: len(skills)})
}

// handleUnlockSkill unlocks a skill.
func (s *Server) handleUnlockSkill(c *gin.Context) {
	var req unlockSkillRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.deps.UnlockSkill.Handle(c.Request.Context(), command.UnlockSkillCommand{
		UserID:    currentUserID(c),
		SkillName: req.Skill,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{
		"skill":      res.Skill.Name,
		"bonus_xp":   res.BonusXP,
		"leveled_up": res.LeveledUp,
		"xp":         int(res.XP),
		"level":      int(res.Level),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type submitQuizRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// questionResultView is one graded question.
type questionResultView struct {
	Answer   int  `json:"answer"`
	Answered bool `json:"answered"`
	Correct  bool `json:"correct"`
}

// submitQuizView is the graded submission.
type submitQuizView struct {
	QuizID    string               `json:"quiz_id"`
	Skill     string               `json:"skill"`
	Score     int                  `json:"score"`
	Total     int                  `json:"total"`
	Percent   int                  `json:"percent"`
	Passed    bool                 `json:"passed"`
	EarnedXP  int                  `json:"earned_xp"`
	Questions []questionResultView `json:"questions"`

	ChallengeCompleted bool `json:"challenge_completed"`
	ChallengeRewardXP  int  `json:"challenge_reward_xp,omitempty"`
	ChallengeAnswered  int  `json:"challenge_answered"`
	ChallengeThreshold int  `json:"challenge_threshold"`

	Achievements []string `json:"new_achievements"`

	XP        int  `json:"xp"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveled_up"`
}

// handleListQuizzes lists the quiz catalog.
func (s *Server) handleListQuizzes(c *gin.Context) {
	quizzes := s.deps.QuizCatalog.ListQuizzes(c.Request.Context())
	writeJSONWithMeta(c, http.StatusOK, quizzes, &ResponseMeta{TotalCount: len(quizzes)})
}

// handleGetQuiz returns the questions of a quiz without answers.
func (s *Server) handleGetQuiz(c *gin.Context) {
	q, err := s.deps.QuizCatalog.GetQuiz(c.Request.Context(), query.GetQuizQuery{Skill: c.Param("skill")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// handleSubmitQuiz grades a quiz submission.
func (s *Server) handleSubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if !s.bind(c, &req) {
		return
	}

	out, err := s.deps.SubmitQuiz.Handle(c.Request.Context(), command.SubmitQuizCommand{
		UserID:  currentUserID(c),
		Skill:   c.Param("skill"),
		Answers: req.Answers,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	view := submitQuizView{
		QuizID:             out.Result.QuizID,
		Skill:              out.Result.Skill,
		Score:              out.Result.Score,
		Total:              out.Result.Total,
		Percent:            out.Result.Percent,
		Passed:             out.Result.Passed,
		EarnedXP:           out.Result.EarnedXP,
		Questions:          make([]questionResultView, 0, len(out.Result.Outcomes)),
		ChallengeCompleted: out.ChallengeCompleted,
		ChallengeAnswered:  out.Challenge.Answered,
		ChallengeThreshold: out.Challenge.Threshold,
		Achievements:       make([]string, 0, len(out.Achievements)),
		XP:                 int(out.User.XP),
		Level:              int(out.User.Level),
		LeveledUp:          out.XP.LeveledUp() || out.ChallengeReward.LeveledUp(),
	}
	if out.ChallengeCompleted {
		view.ChallengeRewardXP = out.ChallengeReward.Amount
	}
	for _, o := range out.Result.Outcomes {
		view.Questions = append(view.Questions, questionResultView{Answer: o.Answer, Answered: o.Answered, Correct: o.Correct})
	}
	for _, a := range out.Achievements {
		view.Achievements = append(view.Achievements, a.Name)
	}

	writeJSON(c, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDailyChallenge returns today's challenge.
func (s *Server) handleDailyChallenge(c *gin.Context) {
	dto, err := s.deps.DailyChallenge.Handle(c.Request.Context(), query.GetDailyChallengeQuery{UserID: currentUserID(c)})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dto)
}

// handleListAchievements lists achievements with the user's state.
func (s *Server) handleListAchievements(c *gin.Context) {
	res, err := s.deps.ListAchievements.Handle(c.Request.Context(), query.ListAchievementsQuery{UserID: currentUserID(c)})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSONWithMeta(c, http.StatusOK, res, &ResponseMeta{TotalCount: res.Total})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// bind decodes the JSON body into dst and writes a 400 on failure.
func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}
