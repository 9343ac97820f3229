package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/infrastructure/persistence/directory"
	"github.com/codevia/codevia/internal/infrastructure/security"
	"github.com/codevia/codevia/internal/interface/http/handlers"
	"github.com/codevia/codevia/pkg/timeutil"
)

type resetGate bool

func (g resetGate) PasswordResetEnabled() bool { return bool(g) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	clock := timeutil.NewManualClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	dir := directory.New(nil, directory.WithClock(clock))
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, nil)
	require.NoError(t, err)

	sessions := session.NewRegistry(session.Deps{
		Rules:     session.DefaultRules(clock),
		Directory: dir,
	})

	cfg.Mode = gin.TestMode
	return NewServer(cfg, Dependencies{
		RegisterUser:         command.NewRegisterUserHandler(dir, hasher, nil, nil),
		Login:                command.NewLoginHandler(dir, hasher, sessions, tokens, nil),
		UnlockSkill:          command.NewUnlockSkillHandler(sessions),
		SubmitQuiz:           command.NewSubmitQuizHandler(sessions),
		ChangePassword:       command.NewChangePasswordHandler(sessions, hasher, nil),
		DeleteAccount:        command.NewDeleteAccountHandler(dir, sessions, hasher, nil, nil),
		RequestPasswordReset: command.NewRequestPasswordResetHandler(dir, resetGate(true), nil),
		ListSkills:           query.NewListSkillsHandler(sessions),
		QuizCatalog:          query.NewQuizCatalogHandler(sessions.Rules().Quizzes),
		DailyChallenge:       query.NewGetDailyChallengeHandler(sessions),
		ListAchievements:     query.NewListAchievementsHandler(sessions),
		Account:              query.NewGetAccountHandler(sessions),
		DirectoryStats:       query.NewDirectoryStatsHandler(dir, sessions, nil),
		Tokens:               tokens,
		HealthChecker:        handlers.NewCompositeHealthChecker("test"),
	})
}

func do(t *testing.T, s *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func registerAndLogin(t *testing.T, s *Server) string {
	t.Helper()

	rec, _ := do(t, s, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice", "email": "alice@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, s, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec, env := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec, _ = do(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, s, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestServer_RegisterErrors(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	registerAndLogin(t, s)

	rec, env := do(t, s, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice2", "email": "alice@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user with this email already exists", env.Error.Message)

	rec, env = do(t, s, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "bob", "email": "bob", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "alice@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_failed", env.Error.Code)
}

func TestServer_AuthRequired(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec, env := do(t, s, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)
}

func TestServer_PlayFlow(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	token := registerAndLogin(t, s)

	rec, env := do(t, s, http.MethodPost, "/api/v1/skills/unlock", token, gin.H{"skill": "Java Basics"})
	require.Equal(t, http.StatusOK, rec.Code)
	var unlocked struct {
		BonusXP int `json:"bonus_xp"`
		XP      int `json:"xp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &unlocked))
	assert.Equal(t, 50, unlocked.BonusXP)
	assert.Equal(t, 50, unlocked.XP)

	rec, env = do(t, s, http.MethodPost, "/api/v1/skills/unlock", token, gin.H{"skill": "Java Basics"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "already_unlocked", env.Error.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/skills/unlock", token, gin.H{"skill": "File I/O"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_xp", env.Error.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/quizzes/java-basics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, string(env.Data), "correct")

	rec, env = do(t, s, http.MethodPost, "/api/v1/quizzes/java-basics/submit", token, gin.H{"answers": []int{1, 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	var graded submitQuizView
	require.NoError(t, json.Unmarshal(env.Data, &graded))
	assert.Equal(t, 2, graded.Score)
	assert.Equal(t, 40, graded.EarnedXP)
	assert.Equal(t, 90, graded.XP)
	assert.Equal(t, 2, graded.ChallengeAnswered)
	assert.False(t, graded.ChallengeCompleted)
	assert.Contains(t, graded.Achievements, "First Quiz")
	require.Len(t, graded.Questions, 2)
	assert.True(t, graded.Questions[0].Correct)

	rec, env = do(t, s, http.MethodGet, "/api/v1/challenge", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var daily query.DailyChallengeDTO
	require.NoError(t, json.Unmarshal(env.Data, &daily))
	assert.Equal(t, "2024-05-10", daily.Date)
	assert.Equal(t, 1, daily.Remaining)

	rec, env = do(t, s, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me query.AccountDTO
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, 90, me.XP)
	assert.Equal(t, []string{"Java Basics"}, me.UnlockedSkills)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/quizzes/rust/submit", token, gin.H{"answers": []int{0}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Account(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	token := registerAndLogin(t, s)

	rec, env := do(t, s, http.MethodPost, "/api/v1/account/password", token, gin.H{
		"current_password": "secret1", "new_password": "secret2", "confirm_password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "passwords do not match", env.Error.Message)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/account/password", token, gin.H{
		"current_password": "secret1", "new_password": "secret2", "confirm_password": "secret2",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@x.com", "password": "secret2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/account", token, gin.H{"password": "secret2", "confirmation": "yes"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/settings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats query.DirectoryStatsDTO
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 0, stats.Users)
	assert.Equal(t, "none", stats.StoreDriver)
}

func TestServer_MalformedBody(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		rec, _ := do(t, s, http.MethodGet, "/live", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, s, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", env.Error.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
