package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/internal/infrastructure/persistence/directory"
	"github.com/codevia/codevia/internal/infrastructure/security"
	"github.com/codevia/codevia/pkg/timeutil"
)

type harness struct {
	dir      *directory.Directory
	hasher   *security.PasswordHasher
	sessions *session.Registry
	events   []shared.Event
}

func (h *harness) Publish(e shared.Event) error {
	h.events = append(h.events, e)
	return nil
}

type gate bool

func (g gate) PasswordResetEnabled() bool { return bool(g) }

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := timeutil.NewManualClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	h := &harness{
		dir:    directory.New(nil, directory.WithClock(clock)),
		hasher: security.NewPasswordHasher(bcrypt.MinCost),
	}
	h.sessions = session.NewRegistry(session.Deps{
		Rules:     session.DefaultRules(clock),
		Directory: h.dir,
		Publisher: h,
	})
	return h
}

func (h *harness) register(t *testing.T, username, email, password string) *learner.User {
	t.Helper()
	res, err := NewRegisterUserHandler(h.dir, h.hasher, h, nil).Handle(context.Background(), RegisterUserCommand{
		Username: username, Email: email, Password: password,
	})
	require.NoError(t, err)
	return res.User
}

func TestRegisterUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	handler := NewRegisterUserHandler(h.dir, h.hasher, h, nil)

	res, err := handler.Handle(ctx, RegisterUserCommand{Username: "alice", Email: " alice@x.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "alice@x.com", res.User.Email)
	assert.Equal(t, learner.Level(1), res.User.Level)
	assert.True(t, security.IsHash(res.User.Password))
	require.Len(t, h.events, 1)
	assert.Equal(t, shared.EventUserRegistered, h.events[0].EventType())

	_, err = handler.Handle(ctx, RegisterUserCommand{Username: "alice2", Email: "alice@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrDuplicateUser)
}

func TestRegisterUser_Validation(t *testing.T) {
	h := newHarness(t)
	handler := NewRegisterUserHandler(h.dir, h.hasher, nil, nil)

	tests := []struct {
		name string
		cmd  RegisterUserCommand
		want error
	}{
		{"empty username", RegisterUserCommand{Username: " ", Email: "a@b.c", Password: "secret1"}, shared.ErrEmptyUsername},
		{"bad email", RegisterUserCommand{Username: "a", Email: "ab.c", Password: "secret1"}, shared.ErrInvalidEmail},
		{"short password", RegisterUserCommand{Username: "a", Email: "a@b.c", Password: "12345"}, shared.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}
	assert.Equal(t, 0, h.dir.Count(context.Background()))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "alice", "alice@x.com", "secret1")

	issuer, err := security.NewTokenIssuer("test-secret", time.Hour, nil)
	require.NoError(t, err)
	handler := NewLoginHandler(h.dir, h.hasher, h.sessions, issuer, nil)

	res, err := handler.Handle(ctx, LoginCommand{Email: "ALICE@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.Session.UserID())

	claims, err := issuer.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	again, err := handler.Handle(ctx, LoginCommand{Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Same(t, res.Session, again.Session)

	_, err = handler.Handle(ctx, LoginCommand{Email: "bob@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrUnknownCredential)
	assert.True(t, shared.IsAuthentication(err))

	_, err = handler.Handle(ctx, LoginCommand{Email: "alice@x.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, shared.ErrInvalidPassword)

	_, err = handler.Handle(ctx, LoginCommand{})
	assert.True(t, shared.IsValidation(err))
}

func TestLogin_LegacyPlaintextCredential(t *testing.T) {
	h := newHarness(t)
	seeded := h.dir.Seed(&learner.User{
		ID: "1", Username: "admin", Email: "admin@codevia.com", Password: "admin123", Level: 1,
	})
	require.Equal(t, 1, seeded)

	res, err := NewLoginHandler(h.dir, h.hasher, h.sessions, nil, nil).
		Handle(context.Background(), LoginCommand{Email: "admin@codevia.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Empty(t, res.Token)
	assert.Equal(t, "1", res.User.ID)
}

func TestUnlockSkillAndSubmitQuiz(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "alice", "alice@x.com", "secret1")

	unlock := NewUnlockSkillHandler(h.sessions)
	submit := NewSubmitQuizHandler(h.sessions)

	_, err := unlock.Handle(ctx, UnlockSkillCommand{UserID: u.ID, SkillName: "OOP"})
	assert.True(t, shared.IsInsufficientXP(err))

	res, err := unlock.Handle(ctx, UnlockSkillCommand{UserID: u.ID, SkillName: "java basics"})
	require.NoError(t, err)
	assert.Equal(t, "Java Basics", res.Skill.Name)
	assert.Equal(t, 50, res.BonusXP)
	assert.Equal(t, learner.XP(50), res.XP)

	out, err := submit.Handle(ctx, SubmitQuizCommand{UserID: u.ID, Skill: "Java Basics", Answers: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.Score)
	assert.Equal(t, learner.XP(90), out.User.XP)

	// The first answer completes the daily challenge: 90 + 50 + 40.
	out, err = submit.Handle(ctx, SubmitQuizCommand{UserID: u.ID, Skill: "oop", Answers: []int{1, 1}})
	require.NoError(t, err)
	assert.True(t, out.ChallengeCompleted)
	assert.Equal(t, learner.XP(180), out.User.XP)

	res, err = unlock.Handle(ctx, UnlockSkillCommand{UserID: u.ID, SkillName: "oop"})
	require.NoError(t, err)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, learner.Level(3), res.Level)

	stored, ok := h.dir.FindByID(ctx, u.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"Java Basics", "OOP"}, stored.UnlockedSkills)

	_, err = submit.Handle(ctx, SubmitQuizCommand{UserID: "missing", Skill: "oop"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	_, err = submit.Handle(ctx, SubmitQuizCommand{UserID: u.ID})
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "alice", "alice@x.com", "secret1")
	handler := NewChangePasswordHandler(h.sessions, h.hasher, nil)

	err := handler.Handle(ctx, ChangePasswordCommand{UserID: u.ID, CurrentPassword: "secret1", NewPassword: "abcdef", ConfirmPassword: "abcdeg"})
	assert.ErrorIs(t, err, shared.ErrPasswordMismatch)

	err = handler.Handle(ctx, ChangePasswordCommand{UserID: u.ID, CurrentPassword: "secret1", NewPassword: "abc", ConfirmPassword: "abc"})
	assert.ErrorIs(t, err, shared.ErrPasswordTooShort)

	err = handler.Handle(ctx, ChangePasswordCommand{UserID: u.ID, CurrentPassword: "nope", NewPassword: "abcdef", ConfirmPassword: "abcdef"})
	assert.ErrorIs(t, err, shared.ErrInvalidPassword)

	require.NoError(t, handler.Handle(ctx, ChangePasswordCommand{UserID: u.ID, CurrentPassword: "secret1", NewPassword: "abcdef", ConfirmPassword: "abcdef"}))

	login := NewLoginHandler(h.dir, h.hasher, h.sessions, nil, nil)
	_, err = login.Handle(ctx, LoginCommand{Email: "alice@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrInvalidPassword)
	_, err = login.Handle(ctx, LoginCommand{Email: "alice@x.com", Password: "abcdef"})
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "alice", "alice@x.com", "secret1")
	_, err := h.sessions.Open(ctx, u.ID)
	require.NoError(t, err)

	handler := NewDeleteAccountHandler(h.dir, h.sessions, h.hasher, h, nil)

	err = handler.Handle(ctx, DeleteAccountCommand{UserID: u.ID, Confirmation: "no", Password: "secret1"})
	assert.ErrorIs(t, err, ErrDeletionNotConfirmed)

	err = handler.Handle(ctx, DeleteAccountCommand{UserID: u.ID, Confirmation: "yes", Password: "wrong"})
	assert.ErrorIs(t, err, shared.ErrInvalidPassword)

	require.NoError(t, handler.Handle(ctx, DeleteAccountCommand{UserID: u.ID, Confirmation: "YES", Password: "secret1"}))
	assert.Equal(t, 0, h.dir.Count(ctx))
	assert.Equal(t, 0, h.sessions.Len())
	assert.Equal(t, shared.EventUserDeleted, h.events[len(h.events)-1].EventType())

	err = handler.Handle(ctx, DeleteAccountCommand{UserID: u.ID, Confirmation: "yes", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestRequestPasswordReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "alice", "alice@x.com", "secret1")

	_, err := NewRequestPasswordResetHandler(h.dir, gate(false), nil).Handle(ctx, RequestPasswordResetCommand{Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrPasswordResetUnavailable)

	_, err = NewRequestPasswordResetHandler(h.dir, nil, nil).Handle(ctx, RequestPasswordResetCommand{Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrPasswordResetUnavailable)

	handler := NewRequestPasswordResetHandler(h.dir, gate(true), nil)
	res, err := handler.Handle(ctx, RequestPasswordResetCommand{Email: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.UserID)

	_, err = handler.Handle(ctx, RequestPasswordResetCommand{Email: "bob@x.com"})
	assert.ErrorIs(t, err, shared.ErrUnknownCredential)

	_, err = handler.Handle(ctx, RequestPasswordResetCommand{Email: "nope"})
	assert.ErrorIs(t, err, shared.ErrInvalidEmail)
}
