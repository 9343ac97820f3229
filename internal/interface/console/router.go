// Package console implements the interactive terminal front-end for Codevia.
// The router drives numbered menus over any reader/writer pair and calls the
// same command and query handlers as the HTTP API.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/codevia/codevia/internal/application/command"
	"github.com/codevia/codevia/internal/application/query"
	"github.com/codevia/codevia/internal/application/session"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	In  io.Reader
	Out io.Writer
}

// Notifications decides which progress notices a user sees.
type Notifications interface {
	LevelUpNotificationsEnabled(userID string) bool
	AchievementNotificationsEnabled(userID string) bool
}

// Dependencies contains the handlers the menus call.
type Dependencies struct {
	RegisterUser         *command.RegisterUserHandler
	Login                *command.LoginHandler
	UnlockSkill          *command.UnlockSkillHandler
	SubmitQuiz           *command.SubmitQuizHandler
	ChangePassword       *command.ChangePasswordHandler
	DeleteAccount        *command.DeleteAccountHandler
	RequestPasswordReset *command.RequestPasswordResetHandler

	ListSkills       *query.ListSkillsHandler
	QuizCatalog      *query.QuizCatalogHandler
	DailyChallenge   *query.GetDailyChallengeHandler
	ListAchievements *query.ListAchievementsHandler
	Account          *query.GetAccountHandler
	DirectoryStats   *query.DirectoryStatsHandler

	// Sessions, when set, is closed on logout.
	Sessions *session.Registry

	// Notifications nil shows every notice.
	Notifications Notifications

	Logger *logger.Logger
}

// errExit ends the menu loop.
var errExit = errors.New("console: exit")

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// Router reads menu choices and dispatches them to handlers.
type Router struct {
	deps      Dependencies
	presenter *Presenter
	logger    *logger.Logger

	in  *bufio.Scanner
	out io.Writer

	// Logged-in user; empty when logged out.
	userID   string
	username string
}

// NewRouter creates a router over cfg.In and cfg.Out.
func NewRouter(cfg RouterConfig, deps Dependencies) *Router {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Router{
		deps:      deps,
		presenter: NewPresenter(),
		logger:    deps.Logger.With(logger.Component("console")),
		in:        bufio.NewScanner(cfg.In),
		out:       cfg.Out,
	}
}

// Run shows menus until the user exits, input ends, or ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	r.printf("Welcome to Codevia!\n")

	for {
		if ctx.Err() != nil {
			return nil
		}

		var err error
		if r.userID == "" {
			err = r.mainMenu(ctx)
		} else {
			err = r.userMenu(ctx)
		}

		switch {
		case err == nil:
		case errors.Is(err, errExit), errors.Is(err, io.EOF):
			r.printf("Goodbye!\n")
			return nil
		default:
			return err
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MAIN MENU
// ─────────────────────────────────────────────────────────────────────────────

func (r *Router) mainMenu(ctx context.Context) error {
	r.printf("%s", r.presenter.FormatMenu("Codevia", MainMenu))
	choice, err := r.readChoice(len(MainMenu))
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		return r.register(ctx)
	case 2:
		return r.login(ctx)
	case 3:
		return r.passwordReset(ctx)
	case 4:
		r.printf("%s", r.presenter.FormatSettings(r.deps.DirectoryStats.Handle(ctx)))
	case 5:
		return errExit
	}
	return nil
}

func (r *Router) register(ctx context.Context) error {
	username, err := r.prompt("Username: ")
	if err != nil {
		return err
	}
	email, err := r.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := r.prompt("Password: ")
	if err != nil {
		return err
	}

	res, err := r.deps.RegisterUser.Handle(ctx, command.RegisterUserCommand{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		r.fail("register", err)
		return nil
	}
	r.printf("✅ Registered %s. You can log in now.\n", res.User.Username)
	return nil
}

func (r *Router) login(ctx context.Context) error {
	email, err := r.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := r.prompt("Password: ")
	if err != nil {
		return err
	}

	res, err := r.deps.Login.Handle(ctx, command.LoginCommand{Email: email, Password: password})
	if err != nil {
		r.fail("login", err)
		return nil
	}

	r.userID = res.User.ID
	r.username = res.User.Username
	r.printf("Welcome back, %s! Level %d, %d XP.\n", res.User.Username, int(res.User.Level), int(res.User.XP))
	return nil
}

func (r *Router) passwordReset(ctx context.Context) error {
	email, err := r.prompt("Email: ")
	if err != nil {
		return err
	}

	res, err := r.deps.RequestPasswordReset.Handle(ctx, command.RequestPasswordResetCommand{Email: email})
	if err != nil {
		r.fail("password_reset", err)
		return nil
	}
	r.printf("Password reset requested for %s.\n", res.Email)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// USER MENU
// ─────────────────────────────────────────────────────────────────────────────

func (r *Router) userMenu(ctx context.Context) error {
	r.printf("%s", r.presenter.FormatMenu("Hello, "+r.username, UserMenu))
	choice, err := r.readChoice(len(UserMenu))
	if err != nil {
		return err
	}

	switch choice {
	case 1:
		r.viewSkills(ctx)
	case 2:
		return r.unlockSkill(ctx)
	case 3:
		return r.playQuiz(ctx)
	case 4:
		r.viewChallenge(ctx)
	case 5:
		r.viewAchievements(ctx)
	case 6:
		return r.accountMenu(ctx)
	case 7:
		r.logout()
	}
	return nil
}

func (r *Router) viewSkills(ctx context.Context) {
	skills, err := r.deps.ListSkills.Handle(ctx, query.ListSkillsQuery{UserID: r.userID})
	if err != nil {
		r.fail("list_skills", err)
		return
	}
	r.printf("%s", r.presenter.FormatSkills(skills))
}

func (r *Router) unlockSkill(ctx context.Context) error {
	name, err := r.prompt("Skill to unlock: ")
	if err != nil {
		return err
	}

	res, err := r.deps.UnlockSkill.Handle(ctx, command.UnlockSkillCommand{UserID: r.userID, SkillName: name})
	if err != nil {
		r.fail("unlock_skill", err)
		return nil
	}

	r.printf("%s", r.presenter.FormatUnlock(res))
	if res.LeveledUp && r.levelUpNotices() {
		r.printf("%s", r.presenter.FormatLevelUp(int(res.Level)))
	}
	return nil
}

func (r *Router) playQuiz(ctx context.Context) error {
	quizzes := r.deps.QuizCatalog.ListQuizzes(ctx)
	if len(quizzes) == 0 {
		r.printf("No quizzes available.\n")
		return nil
	}

	r.printf("%s", r.presenter.FormatQuizList(quizzes))
	choice, err := r.readChoice(len(quizzes))
	if err != nil || choice == 0 {
		return err
	}

	q, err := r.deps.QuizCatalog.GetQuiz(ctx, query.GetQuizQuery{Skill: quizzes[choice-1].Skill})
	if err != nil {
		r.fail("get_quiz", err)
		return nil
	}

	answers := make([]int, 0, len(q.Items))
	for _, item := range q.Items {
		r.printf("%s", r.presenter.FormatQuestion(item, len(q.Items)))
		line, err := r.prompt(fmt.Sprintf("Your answer (1-%d, blank to skip): ", len(item.Options)))
		if err != nil {
			return err
		}
		answers = append(answers, parseAnswer(line))
	}

	out, err := r.deps.SubmitQuiz.Handle(ctx, command.SubmitQuizCommand{
		UserID:  r.userID,
		Skill:   q.Skill,
		Answers: answers,
	})
	if err != nil {
		r.fail("submit_quiz", err)
		return nil
	}

	r.printf("%s", r.presenter.FormatQuizResult(out))
	if (out.XP.LeveledUp() || out.ChallengeReward.LeveledUp()) && r.levelUpNotices() {
		r.printf("%s", r.presenter.FormatLevelUp(int(out.User.Level)))
	}
	if r.achievementNotices() {
		for _, a := range out.Achievements {
			r.printf("%s", r.presenter.FormatAchievementUnlocked(a.Title()))
		}
	}
	return nil
}

func (r *Router) viewChallenge(ctx context.Context) {
	dto, err := r.deps.DailyChallenge.Handle(ctx, query.GetDailyChallengeQuery{UserID: r.userID})
	if err != nil {
		r.fail("daily_challenge", err)
		return
	}
	r.printf("%s", r.presenter.FormatChallenge(dto))
}

func (r *Router) viewAchievements(ctx context.Context) {
	res, err := r.deps.ListAchievements.Handle(ctx, query.ListAchievementsQuery{UserID: r.userID})
	if err != nil {
		r.fail("list_achievements", err)
		return
	}
	r.printf("%s", r.presenter.FormatAchievements(res))
}

func (r *Router) logout() {
	if r.deps.Sessions != nil {
		r.deps.Sessions.Close(r.userID)
	}
	r.printf("Logged out.\n")
	r.userID, r.username = "", ""
}

// ─────────────────────────────────────────────────────────────────────────────
// ACCOUNT MENU
// ─────────────────────────────────────────────────────────────────────────────

func (r *Router) accountMenu(ctx context.Context) error {
	for r.userID != "" {
		r.printf("%s", r.presenter.FormatMenu("Account Settings", AccountMenu))
		choice, err := r.readChoice(len(AccountMenu))
		if err != nil {
			return err
		}

		switch choice {
		case 1:
			if err := r.changePassword(ctx); err != nil {
				return err
			}
		case 2:
			dto, err := r.deps.Account.Handle(ctx, query.GetAccountQuery{UserID: r.userID})
			if err != nil {
				r.fail("account", err)
				continue
			}
			r.printf("%s", r.presenter.FormatAccount(dto))
		case 3:
			if err := r.deleteAccount(ctx); err != nil {
				return err
			}
		case 4:
			return nil
		}
	}
	return nil
}

func (r *Router) changePassword(ctx context.Context) error {
	current, err := r.prompt("Current password: ")
	if err != nil {
		return err
	}
	next, err := r.prompt("New password: ")
	if err != nil {
		return err
	}
	confirm, err := r.prompt("Confirm new password: ")
	if err != nil {
		return err
	}

	err = r.deps.ChangePassword.Handle(ctx, command.ChangePasswordCommand{
		UserID:          r.userID,
		CurrentPassword: current,
		NewPassword:     next,
		ConfirmPassword: confirm,
	})
	if err != nil {
		r.fail("change_password", err)
		return nil
	}
	r.printf("✅ Password changed.\n")
	return nil
}

func (r *Router) deleteAccount(ctx context.Context) error {
	confirmation, err := r.prompt(fmt.Sprintf("Type '%s' to delete your account: ", command.ConfirmDeletion))
	if err != nil {
		return err
	}
	password, err := r.prompt("Password: ")
	if err != nil {
		return err
	}

	err = r.deps.DeleteAccount.Handle(ctx, command.DeleteAccountCommand{
		UserID:       r.userID,
		Confirmation: confirmation,
		Password:     password,
	})
	if err != nil {
		r.fail("delete_account", err)
		return nil
	}

	r.printf("Account deleted.\n")
	r.userID, r.username = "", ""
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

func (r *Router) levelUpNotices() bool {
	return r.deps.Notifications == nil || r.deps.Notifications.LevelUpNotificationsEnabled(r.userID)
}

func (r *Router) achievementNotices() bool {
	return r.deps.Notifications == nil || r.deps.Notifications.AchievementNotificationsEnabled(r.userID)
}

func (r *Router) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

// prompt prints label and returns the next trimmed line, or io.EOF.
func (r *Router) prompt(label string) (string, error) {
	r.printf("%s", label)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(r.in.Text()), nil
}

// readChoice reads a menu choice in [1, n]. It returns 0 after reporting an
// invalid choice.
func (r *Router) readChoice(n int) (int, error) {
	line, err := r.prompt("Choose an option: ")
	if err != nil {
		return 0, err
	}
	choice, convErr := strconv.Atoi(line)
	if convErr != nil || choice < 1 || choice > n {
		r.printf("Invalid choice.\n")
		return 0, nil
	}
	return choice, nil
}

// fail reports a failed operation to the user.
func (r *Router) fail(op string, err error) {
	r.logger.Debug("operation failed",
		logger.String("op", op),
		logger.UserID(r.userID),
		logger.Err(err),
	)
	r.printf("%s", r.presenter.FormatError(err))
}

// parseAnswer converts a 1-based answer to an option index. Blank or
// unparsable input is a skip.
func parseAnswer(line string) int {
	n, err := strconv.Atoi(line)
	if err != nil {
		return -1
	}
	return n - 1
}
