// Package achievement derives earned achievements from a learner's quiz and
// daily-challenge counters. Each user owns one Tracker.
package achievement

import (
	"strings"
	"time"

	"github.com/codevia/codevia/pkg/timeutil"
)

// Achievement names. The name is the stable key stored on the user.
const (
	FirstQuiz      = "First Quiz"
	ThreeDayStreak = "3-Day Streak"
	QuizMaster     = "Quiz Master"
)

// Thresholds.
const (
	QuizMasterQuizzes = 5
	StreakDays        = 3
)

// Achievement is a catalog entry.
type Achievement struct {
	Name        string
	Icon        string
	Description string
}

// Title returns the icon-prefixed display name.
func (a Achievement) Title() string {
	if a.Icon == "" {
		return a.Name
	}
	return a.Icon + " " + a.Name
}

// Catalog returns the fixed achievement list in display order.
func Catalog() []Achievement {
	return []Achievement{
		{Name: FirstQuiz, Icon: "🎯", Description: "Complete your first quiz"},
		{Name: ThreeDayStreak, Icon: "🔥", Description: "Complete daily challenge 3 days in a row"},
		{Name: QuizMaster, Icon: "📚", Description: "Complete 5 quizzes total"},
	}
}

// Status is an achievement with its state for one user.
type Status struct {
	Achievement
	Unlocked   bool
	UnlockedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// Tracker holds one user's counters and unlocked achievements.
// It is not safe for concurrent use; the owning session serializes access.
type Tracker struct {
	clock   timeutil.Clock
	catalog []Achievement

	unlocked map[string]time.Time

	quizzesCompleted int
	dailyStreak      int
	lastDailyDate    time.Time
}

// NewTracker creates a tracker. earned lists achievement names the user
// already holds; they start unlocked. Unknown names are ignored.
func NewTracker(clock timeutil.Clock, earned ...string) *Tracker {
	if clock == nil {
		clock = timeutil.NewSystemClock(nil)
	}
	t := &Tracker{
		clock:    clock,
		catalog:  Catalog(),
		unlocked: make(map[string]time.Time),
	}
	for _, name := range earned {
		if a, ok := t.lookup(name); ok {
			t.unlocked[a.Name] = time.Time{}
		}
	}
	return t
}

// Clone returns an independent copy of the tracker.
func (t *Tracker) Clone() *Tracker {
	c := *t
	c.unlocked = make(map[string]time.Time, len(t.unlocked))
	for name, at := range t.unlocked {
		c.unlocked[name] = at
	}
	return &c
}

// RecordQuizCompleted counts a finished quiz and returns any achievements it
// unlocked.
func (t *Tracker) RecordQuizCompleted() []Achievement {
	t.quizzesCompleted++

	var unlocked []Achievement
	if t.quizzesCompleted == 1 {
		unlocked = t.unlock(unlocked, FirstQuiz)
	}
	if t.quizzesCompleted == QuizMasterQuizzes {
		unlocked = t.unlock(unlocked, QuizMaster)
	}
	return unlocked
}

// RecordDailyChallengeCompleted updates the daily streak and returns any
// achievements it unlocked. A completion on the day after the last one
// extends the streak; a completion after a gap restarts it at 1; a second
// completion on the same day leaves it alone. The streak achievement fires
// only when the streak is exactly StreakDays.
func (t *Tracker) RecordDailyChallengeCompleted() []Achievement {
	today := t.clock.Now()

	switch {
	case timeutil.IsNextDay(t.lastDailyDate, today):
		t.dailyStreak++
	case !timeutil.SameDay(t.lastDailyDate, today):
		t.dailyStreak = 1
	}
	t.lastDailyDate = timeutil.StartOfDay(today)

	var unlocked []Achievement
	if t.dailyStreak == StreakDays {
		unlocked = t.unlock(unlocked, ThreeDayStreak)
	}
	return unlocked
}

// List returns the whole catalog with state, in catalog order.
func (t *Tracker) List() []Status {
	out := make([]Status, 0, len(t.catalog))
	for _, a := range t.catalog {
		at, ok := t.unlocked[a.Name]
		out = append(out, Status{Achievement: a, Unlocked: ok, UnlockedAt: at})
	}
	return out
}

// IsUnlocked reports whether the named achievement is unlocked.
func (t *Tracker) IsUnlocked(name string) bool {
	a, ok := t.lookup(name)
	if !ok {
		return false
	}
	_, ok = t.unlocked[a.Name]
	return ok
}

// UnlockedCount returns the number of unlocked achievements.
func (t *Tracker) UnlockedCount() int {
	return len(t.unlocked)
}

// QuizzesCompleted returns the quiz counter.
func (t *Tracker) QuizzesCompleted() int { return t.quizzesCompleted }

// DailyStreak returns the current streak length.
func (t *Tracker) DailyStreak() int { return t.dailyStreak }

// LastDailyDate returns the day of the last completed challenge, or the zero
// time.
func (t *Tracker) LastDailyDate() time.Time { return t.lastDailyDate }

func (t *Tracker) unlock(acc []Achievement, name string) []Achievement {
	if _, done := t.unlocked[name]; done {
		return acc
	}
	a, ok := t.lookup(name)
	if !ok {
		return acc
	}
	t.unlocked[a.Name] = t.clock.Now()
	return append(acc, a)
}

func (t *Tracker) lookup(name string) (Achievement, bool) {
	for _, a := range t.catalog {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			return a, true
		}
	}
	return Achievement{}, false
}
