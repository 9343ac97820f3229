// Package challenge implements the daily challenge: answer a fixed number of
// quiz questions in one calendar day to earn a one-time XP reward.
package challenge

import (
	"time"

	"github.com/codevia/codevia/pkg/timeutil"
)

// Defaults.
const (
	DefaultThreshold = 3
	DefaultRewardXP  = 50
)

// State is the challenge state for the current day.
type State string

const (
	// StateInProgress is the initial state each day.
	StateInProgress State = "in_progress"
	// StateCompleted is terminal until the date changes.
	StateCompleted State = "completed"
)

// Status is a snapshot of the challenge.
type Status struct {
	Date      time.Time
	Answered  int
	Threshold int
	Completed bool
	RewardXP  int
}

// Remaining returns how many answers are still needed today.
func (s Status) Remaining() int {
	if s.Completed || s.Answered >= s.Threshold {
		return 0
	}
	return s.Threshold - s.Answered
}

// Config configures a DailyChallenge.
type Config struct {
	Threshold int
	RewardXP  int
}

// DefaultConfig returns the standard challenge rules.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, RewardXP: DefaultRewardXP}
}

// DailyChallenge tracks today's answered questions. The day rolls over
// lazily: every read or write first resets the counter if the date changed.
// Not safe for concurrent use.
type DailyChallenge struct {
	clock     timeutil.Clock
	threshold int
	rewardXP  int

	date     time.Time
	answered int
	state    State
}

// New creates a challenge for the clock's current day.
func New(clock timeutil.Clock, cfg Config) *DailyChallenge {
	if clock == nil {
		clock = timeutil.NewSystemClock(nil)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.RewardXP < 0 {
		cfg.RewardXP = 0
	}
	return &DailyChallenge{
		clock:     clock,
		threshold: cfg.Threshold,
		rewardXP:  cfg.RewardXP,
		date:      timeutil.StartOfDay(clock.Now()),
		state:     StateInProgress,
	}
}

// Clone returns an independent copy of the challenge.
func (d *DailyChallenge) Clone() *DailyChallenge {
	c := *d
	return &c
}

// ResetIfNewDay starts a fresh day if the date changed. It reports whether a
// reset happened.
func (d *DailyChallenge) ResetIfNewDay() bool {
	now := d.clock.Now()
	if timeutil.SameDay(d.date, now) {
		return false
	}
	d.date = timeutil.StartOfDay(now)
	d.answered = 0
	d.state = StateInProgress
	return true
}

// IncrementProgress records one answered question. It returns true only on
// the call that completes the challenge; the caller grants RewardXP then.
// Calls after completion are no-ops.
func (d *DailyChallenge) IncrementProgress() bool {
	d.ResetIfNewDay()

	if d.state == StateCompleted {
		return false
	}

	d.answered++
	if d.answered >= d.threshold {
		d.state = StateCompleted
		return true
	}
	return false
}

// Status returns today's progress.
func (d *DailyChallenge) Status() Status {
	d.ResetIfNewDay()
	return Status{
		Date:      d.date,
		Answered:  d.answered,
		Threshold: d.threshold,
		Completed: d.state == StateCompleted,
		RewardXP:  d.rewardXP,
	}
}

// State returns the current state without rolling the day.
func (d *DailyChallenge) State() State {
	return d.state
}

// RewardXP returns the completion reward.
func (d *DailyChallenge) RewardXP() int {
	return d.rewardXP
}
