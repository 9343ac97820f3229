package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/infrastructure/persistence/directory"
	"github.com/codevia/codevia/internal/infrastructure/security"
	"github.com/codevia/codevia/pkg/timeutil"
)

type resetGate bool

func (g resetGate) PasswordResetEnabled() bool { return bool(g) }

type quietNotifications struct{}

func (quietNotifications) LevelUpNotificationsEnabled(string) bool     { return false }
func (quietNotifications) AchievementNotificationsEnabled(string) bool { return false }

func newDeps(t *testing.T, reset bool) (Dependencies, *directory.Directory) {
	t.Helper()

	clock := timeutil.NewManualClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	dir := directory.New(nil, directory.WithClock(clock))
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	sessions := session.NewRegistry(session.Deps{
		Rules:     session.DefaultRules(clock),
		Directory: dir,
	})

	return Dependencies{
		RegisterUser:         command.NewRegisterUserHandler(dir, hasher, nil, nil),
		Login:                command.NewLoginHandler(dir, hasher, sessions, nil, nil),
		UnlockSkill:          command.NewUnlockSkillHandler(sessions),
		SubmitQuiz:           command.NewSubmitQuizHandler(sessions),
		ChangePassword:       command.NewChangePasswordHandler(sessions, hasher, nil),
		DeleteAccount:        command.NewDeleteAccountHandler(dir, sessions, hasher, nil, nil),
		RequestPasswordReset: command.NewRequestPasswordResetHandler(dir, resetGate(reset), nil),
		ListSkills:           query.NewListSkillsHandler(sessions),
		QuizCatalog:          query.NewQuizCatalogHandler(sessions.Rules().Quizzes),
		DailyChallenge:       query.NewGetDailyChallengeHandler(sessions),
		ListAchievements:     query.NewListAchievementsHandler(sessions),
		Account:              query.NewGetAccountHandler(sessions),
		DirectoryStats:       query.NewDirectoryStatsHandler(dir, sessions, nil),
		Sessions:             sessions,
	}, dir
}

func script(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func run(t *testing.T, deps Dependencies, in *strings.Reader) string {
	t.Helper()
	var out bytes.Buffer
	r := NewRouter(RouterConfig{In: in, Out: &out}, deps)
	require.NoError(t, r.Run(context.Background()))
	return out.String()
}

func TestRouter_PlaySession(t *testing.T) {
	deps, _ := newDeps(t, false)

	out := run(t, deps, script(
		"1", "bob", "bob@x.com", "secret1", // register
		"2", "bob@x.com", "secret1", // login
		"2", "Java Basics", // unlock
		"3", "1", "2", "3", // java-basics, both correct
		"3", "2", "2", "", // oop, one correct and one skipped
		"4",                 // daily challenge
		"5",                 // achievements
		"6", "2", "1", "secret1", "secret2", "secret2", "4", // account
		"7",                 // logout
		"4",                 // settings
		"2", "bob@x.com", "wrong",
		"5",
	))

	assert.Contains(t, out, "✅ Registered bob.")
	assert.Contains(t, out, "Welcome back, bob! Level 1, 0 XP.")
	assert.Contains(t, out, "✅ Unlocked Java Basics! +50 XP (total 50 XP, level 1)")
	assert.Contains(t, out, "Q1/2: What is the size of int in Java?")
	assert.Contains(t, out, "Score: 2/2 (100%)")
	assert.Contains(t, out, "🏅 Achievement unlocked: 🎯 First Quiz")
	assert.Contains(t, out, "Score: 1/2 (50%)")
	assert.Contains(t, out, "🏆 Daily challenge completed! +50 XP")
	assert.Contains(t, out, "🎉 Level up! You are now level 2.")
	assert.Contains(t, out, "✅ Completed")
	assert.Contains(t, out, "Achievements (1/3):")
	assert.Contains(t, out, "Username: bob")
	assert.Contains(t, out, "XP: 160")
	assert.Contains(t, out, "Skills: Java Basics")
	assert.Contains(t, out, "✅ Password changed.")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Store: none (not connected)")
	assert.Contains(t, out, "Users: 1")
	assert.Contains(t, out, "❌ invalid password")
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"))
}

func TestRouter_QuietNotifications(t *testing.T) {
	deps, _ := newDeps(t, false)
	deps.Notifications = quietNotifications{}

	out := run(t, deps, script(
		"1", "bob", "bob@x.com", "secret1",
		"2", "bob@x.com", "secret1",
		"3", "1", "2", "3",
		"3", "2", "2", "2",
	))

	assert.Contains(t, out, "🏆 Daily challenge completed! +50 XP")
	assert.NotContains(t, out, "Level up!")
	assert.NotContains(t, out, "Achievement unlocked")
	assert.Contains(t, out, "Goodbye!", "end of input exits")
}

func TestRouter_DeleteAccount(t *testing.T) {
	deps, dir := newDeps(t, false)

	out := run(t, deps, script(
		"1", "bob", "bob@x.com", "secret1",
		"2", "bob@x.com", "secret1",
		"6", "3", "no", "secret1", // wrong confirmation
		"3", "yes", "secret1",
		"2", "bob@x.com", "secret1",
		"5",
	))

	assert.Contains(t, out, "Account deleted.")
	assert.Contains(t, out, "❌ user not found")
	assert.Equal(t, 0, dir.Count(context.Background()))
}

func TestRouter_PasswordReset(t *testing.T) {
	deps, _ := newDeps(t, false)
	out := run(t, deps, script("3", "bob@x.com", "5"))
	assert.Contains(t, out, "❌ password reset is only available with external authentication")

	deps, _ = newDeps(t, true)
	out = run(t, deps, script(
		"1", "bob", "bob@x.com", "secret1",
		"3", "BOB@x.com",
		"5",
	))
	assert.Contains(t, out, "Password reset requested for bob@x.com.")
}

func TestRouter_InvalidInput(t *testing.T) {
	deps, _ := newDeps(t, false)

	out := run(t, deps, script("9", "abc", "2", "nobody@x.com", "secret1", "5"))
	assert.Equal(t, 2, strings.Count(out, "Invalid choice."))
	assert.Contains(t, out, "❌ user not found")
}

func TestRouter_ContextCancelled(t *testing.T) {
	deps, _ := newDeps(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	r := NewRouter(RouterConfig{In: script("1"), Out: &out}, deps)
	require.NoError(t, r.Run(ctx))
	assert.NotContains(t, out.String(), "=== Codevia ===")
}

func TestParseAnswer(t *testing.T) {
	assert.Equal(t, 0, parseAnswer("1"))
	assert.Equal(t, 2, parseAnswer("3"))
	assert.Equal(t, -1, parseAnswer(""))
	assert.Equal(t, -1, parseAnswer("x"))
}

func TestPresenter_ProgressBar(t *testing.T) {
	p := NewPresenter()
	assert.Equal(t, "[----------]", p.formatProgressBar(0, 3))
	assert.Equal(t, "[######----]", p.formatProgressBar(2, 3))
	assert.Equal(t, "[##########]", p.formatProgressBar(5, 3))
}
