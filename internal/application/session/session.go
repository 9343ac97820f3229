package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codevia/codevia/internal/domain/achievement"
	"github.com/codevia/codevia/internal/domain/challenge"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/quiz"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/internal/domain/skill"
	"github.com/codevia/codevia/pkg/logger"
)

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Rules     *Rules
	Directory learner.Directory
	Publisher shared.EventPublisher
	Logger    *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Rules == nil {
		d.Rules = DefaultRules(nil)
	}
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session confines one user's User, achievement Tracker and DailyChallenge
// behind a mutex. Every mutating flow ends by writing the user back to the
// directory, which mirrors it to the document store.
type Session struct {
	mu sync.Mutex

	deps      Deps
	log       *logger.Logger
	user      *learner.User
	tracker   *achievement.Tracker
	challenge *challenge.DailyChallenge
	openedAt  time.Time
}

// New opens a session for u. The session keeps its own copy of the user.
// Achievements already on the user start unlocked.
func New(deps Deps, u *learner.User) *Session {
	deps = deps.withDefaults()
	user := u.Clone()
	clock := deps.Rules.Clock

	return &Session{
		deps:      deps,
		log:       deps.Logger.With(logger.Component("session"), logger.UserID(user.ID)),
		user:      user,
		tracker:   achievement.NewTracker(clock, user.Achievements...),
		challenge: challenge.New(clock, deps.Rules.Challenge),
		openedAt:  clock.Now(),
	}
}

// UserID returns the session owner's id.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.ID
}

// OpenedAt returns when the session started.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// User returns a copy of the session's user.
func (s *Session) User() *learner.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

// Skills returns the skill catalog with this user's unlocked flags.
func (s *Session) Skills() []skill.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deps.Rules.Skills.ForUser(s.user)
}

// DailyChallenge returns today's challenge status.
func (s *Session) DailyChallenge() challenge.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge.Status()
}

// Achievements returns the achievement catalog with this user's state.
func (s *Session) Achievements() []achievement.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.List()
}

// ─────────────────────────────────────────────────────────────────────────────
// Flows
// ─────────────────────────────────────────────────────────────────────────────

// GainXP grants amount XP from source. Negative amounts are ignored.
func (s *Session) GainXP(ctx context.Context, amount int, source string) (learner.Gain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []shared.Event
	restore := s.snapshot()
	gain := s.grant(amount, source, &events)
	if err := s.persist(ctx, "GainXP"); err != nil {
		restore()
		return learner.Gain{}, err
	}
	s.publish(events)
	return gain, nil
}

// UnlockOutcome is the result of a successful unlock.
type UnlockOutcome struct {
	Skill skill.Skill
	Bonus learner.Gain
}

// UnlockSkill unlocks the named skill. See skill.Unlocker for the errors.
func (s *Session) UnlockSkill(ctx context.Context, name string) (*UnlockOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restore := s.snapshot()
	unlock, err := s.deps.Rules.Unlocker.Unlock(s.user, name)
	if err != nil {
		return nil, err
	}

	events := []shared.Event{
		shared.NewSkillUnlockedEvent(s.user.ID, unlock.Skill.ID, unlock.Skill.Name, unlock.Bonus.Amount),
	}
	s.gainEvents(unlock.Bonus, shared.XPSourceSkillUnlock, &events)

	if err := s.persist(ctx, "UnlockSkill"); err != nil {
		restore()
		return nil, err
	}
	s.publish(events)

	s.log.Info("skill unlocked",
		logger.SkillName(unlock.Skill.Name),
		logger.XPAmount(unlock.Bonus.Amount),
	)
	return &UnlockOutcome{Skill: unlock.Skill, Bonus: unlock.Bonus}, nil
}

// QuizOutcome is the result of a submitted quiz.
type QuizOutcome struct {
	Result quiz.Result

	// XP is the grant for correct answers.
	XP learner.Gain

	// ChallengeCompleted is true when this submission completed today's
	// challenge; ChallengeReward is the grant it paid.
	ChallengeCompleted bool
	ChallengeReward    learner.Gain
	Challenge          challenge.Status

	// Achievements lists achievements newly unlocked by this submission.
	Achievements []achievement.Achievement

	User *learner.User
}

// SubmitQuiz grades answers against the quiz for skillName.
//
// Each answered question ticks the daily challenge; the tick that completes
// it pays the reward and records a daily completion. Quiz XP is granted
// afterwards and the quiz counts once towards achievements.
func (s *Session) SubmitQuiz(ctx context.Context, skillName string, answers []int) (*QuizOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.deps.Rules.Quizzes.Find(skillName)
	if err != nil {
		return nil, err
	}

	restore := s.snapshot()
	result := s.deps.Rules.Grader.Grade(q, answers)
	out := &QuizOutcome{Result: result}

	var events []shared.Event
	var unlocked []achievement.Achievement

	for _, o := range result.Outcomes {
		if !o.Answered {
			continue
		}
		if !s.challenge.IncrementProgress() {
			continue
		}
		out.ChallengeCompleted = true
		out.ChallengeReward = s.grant(s.challenge.RewardXP(), shared.XPSourceDailyChallenge, &events)
		events = append(events, shared.NewDailyChallengeCompletedEvent(
			s.user.ID, s.challenge.Status().Date, s.challenge.RewardXP()))
		unlocked = append(unlocked, s.tracker.RecordDailyChallengeCompleted()...)
	}

	out.XP = s.grant(result.EarnedXP, shared.XPSourceQuiz, &events)
	events = append(events, shared.NewQuizCompletedEvent(
		s.user.ID, result.QuizID, result.Skill, result.Score, result.Total, result.EarnedXP))
	unlocked = append(unlocked, s.tracker.RecordQuizCompleted()...)

	for _, a := range unlocked {
		s.user.AddAchievement(a.Name)
		events = append(events, shared.NewAchievementUnlockedEvent(s.user.ID, a.Name, a.Title(), a.Description))
	}
	out.Achievements = unlocked
	out.Challenge = s.challenge.Status()

	if err := s.persist(ctx, "SubmitQuiz"); err != nil {
		restore()
		return nil, err
	}
	s.publish(events)

	s.log.Info("quiz graded",
		logger.QuizID(result.QuizID),
		logger.Int("score", result.Score),
		logger.Int("total", result.Total),
		logger.XPAmount(result.EarnedXP),
	)
	out.User = s.user.Clone()
	return out, nil
}

// SetPassword replaces the stored credential. credential is already hashed.
func (s *Session) SetPassword(ctx context.Context, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.user.Password
	s.user.Password = credential
	if err := s.persist(ctx, "SetPassword"); err != nil {
		s.user.Password = previous
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers (caller holds mu)
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) grant(amount int, source string, events *[]shared.Event) learner.Gain {
	gain := s.deps.Rules.Progression.Gain(s.user, amount)
	s.gainEvents(gain, source, events)
	return gain
}

func (s *Session) gainEvents(gain learner.Gain, source string, events *[]shared.Event) {
	if gain.Amount > 0 {
		*events = append(*events, shared.NewXPGainedEvent(s.user.ID, gain.Amount, int(gain.Total), source))
	}
	prev := gain.FromLevel
	for _, level := range gain.Levels() {
		*events = append(*events, shared.NewLevelUpEvent(s.user.ID, int(prev), int(level)))
		prev = level
	}
	if gain.LeveledUp() {
		s.log.Info("level up",
			logger.LevelValue(int(gain.ToLevel)),
			logger.Int("levels_gained", gain.LevelsGained()),
		)
	}
}

// snapshot captures the mutable state; calling the result puts it back.
// Flows restore it when persisting fails.
func (s *Session) snapshot() func() {
	user := s.user.Clone()
	tracker := s.tracker.Clone()
	daily := s.challenge.Clone()
	return func() {
		s.user = user
		s.tracker = tracker
		s.challenge = daily
	}
}

func (s *Session) persist(ctx context.Context, op string) error {
	s.user.Touch(s.deps.Rules.Clock.Now())
	if s.deps.Directory == nil {
		return nil
	}
	if err := s.deps.Directory.Update(ctx, s.user); err != nil {
		return fmt.Errorf("session %s: %w", op, err)
	}
	return nil
}

func (s *Session) publish(events []shared.Event) {
	for _, e := range events {
		if err := s.deps.Publisher.Publish(e); err != nil {
			s.log.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}
