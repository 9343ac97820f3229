// Package session owns one logged-in learner's mutable state and runs the
// flows that cross domain components: quiz grading feeding the daily
// challenge and the achievement tracker, skill unlocks feeding progression.
package session

import (
	"fmt"

	"github.com/codevia/codevia/internal/domain/challenge"
	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/quiz"
	"github.com/codevia/codevia/internal/domain/skill"
	"github.com/codevia/codevia/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GAME RULES
// Shared, read-only configuration used by every session.
// ══════════════════════════════════════════════════════════════════════════════

// RulesConfig selects the tunable game rules.
type RulesConfig struct {
	// LevelPolicy is "cumulative" (default) or "rollover".
	LevelPolicy string

	SkillBonusXP   int
	XPPerCorrect   int
	DailyThreshold int
	DailyRewardXP  int
}

// DefaultRulesConfig returns the standard rules.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		LevelPolicy:    learner.PolicyCumulative,
		SkillBonusXP:   skill.DefaultUnlockBonusXP,
		XPPerCorrect:   quiz.DefaultXPPerCorrect,
		DailyThreshold: challenge.DefaultThreshold,
		DailyRewardXP:  challenge.DefaultRewardXP,
	}
}

// Rules bundles the catalogs and engines a session plays against.
type Rules struct {
	Skills      *skill.Catalog
	Quizzes     *quiz.Catalog
	Progression *learner.Progression
	Unlocker    *skill.Unlocker
	Grader      quiz.Grader
	Challenge   challenge.Config
	Clock       timeutil.Clock
}

// withDefaults replaces unset or negative amounts with the standard rules.
func (c RulesConfig) withDefaults() RulesConfig {
	def := DefaultRulesConfig()
	if c.SkillBonusXP <= 0 {
		c.SkillBonusXP = def.SkillBonusXP
	}
	if c.XPPerCorrect <= 0 {
		c.XPPerCorrect = def.XPPerCorrect
	}
	if c.DailyThreshold <= 0 {
		c.DailyThreshold = def.DailyThreshold
	}
	if c.DailyRewardXP <= 0 {
		c.DailyRewardXP = def.DailyRewardXP
	}
	return c
}

// NewRules builds rules over the default catalogs. Amounts of zero or less
// fall back to the standard values.
func NewRules(cfg RulesConfig, clock timeutil.Clock) (*Rules, error) {
	cfg = cfg.withDefaults()
	policy, err := learner.PolicyByName(cfg.LevelPolicy)
	if err != nil {
		return nil, fmt.Errorf("session rules: %w", err)
	}
	if clock == nil {
		clock = timeutil.NewSystemClock(nil)
	}

	skills := skill.DefaultCatalog()
	progression := learner.NewProgression(policy)

	return &Rules{
		Skills:      skills,
		Quizzes:     quiz.DefaultCatalog(),
		Progression: progression,
		Unlocker:    skill.NewUnlocker(skills, progression, cfg.SkillBonusXP),
		Grader:      quiz.NewGrader(cfg.XPPerCorrect),
		Challenge: challenge.Config{
			Threshold: cfg.DailyThreshold,
			RewardXP:  cfg.DailyRewardXP,
		},
		Clock: clock,
	}, nil
}

// DefaultRules returns the standard rules on the given clock.
func DefaultRules(clock timeutil.Clock) *Rules {
	rules, err := NewRules(DefaultRulesConfig(), clock)
	if err != nil {
		panic(err)
	}
	return rules
}
