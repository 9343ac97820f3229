package learner

import (
	"fmt"
	"strings"
)

// XPPerLevel is the base step between levels.
const XPPerLevel = 100

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL POLICIES
// ══════════════════════════════════════════════════════════════════════════════

// Policy names accepted by PolicyByName.
const (
	PolicyCumulative = "cumulative"
	PolicyRollover   = "rollover"
)

// LevelPolicy settles a user's XP and level after XP has been added.
type LevelPolicy interface {
	Name() string
	Settle(xp XP, level Level) (XP, Level)
}

// CumulativePolicy derives the level from total XP: level = xp/100 + 1.
// XP is never reduced.
type CumulativePolicy struct{}

// Name implements LevelPolicy.
func (CumulativePolicy) Name() string { return PolicyCumulative }

// Settle implements LevelPolicy.
func (CumulativePolicy) Settle(xp XP, _ Level) (XP, Level) {
	if xp < 0 {
		xp = 0
	}
	return xp, Level(int(xp)/XPPerLevel) + MinLevel
}

// RolloverPolicy spends level*100 XP for each level gained. Leftover XP
// carries into the next level.
type RolloverPolicy struct{}

// Name implements LevelPolicy.
func (RolloverPolicy) Name() string { return PolicyRollover }

// Settle implements LevelPolicy.
func (RolloverPolicy) Settle(xp XP, level Level) (XP, Level) {
	if level < MinLevel {
		level = MinLevel
	}
	if xp < 0 {
		xp = 0
	}
	for xp >= level.Threshold() {
		xp -= level.Threshold()
		level++
	}
	return xp, level
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (LevelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyCumulative:
		return CumulativePolicy{}, nil
	case PolicyRollover:
		return RolloverPolicy{}, nil
	default:
		return nil, fmt.Errorf("learner: unknown level policy %q", name)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION
// ══════════════════════════════════════════════════════════════════════════════

// Gain describes the effect of one XP grant.
type Gain struct {
	Amount    int
	FromLevel Level
	ToLevel   Level
	Total     XP
}

// LeveledUp reports whether the grant raised the level.
func (g Gain) LeveledUp() bool {
	return g.ToLevel > g.FromLevel
}

// LevelsGained returns how many levels were crossed.
func (g Gain) LevelsGained() int {
	return int(g.ToLevel - g.FromLevel)
}

// Levels returns each new level reached, in order.
func (g Gain) Levels() []Level {
	if !g.LeveledUp() {
		return nil
	}
	levels := make([]Level, 0, g.LevelsGained())
	for l := g.FromLevel + 1; l <= g.ToLevel; l++ {
		levels = append(levels, l)
	}
	return levels
}

// Progression applies XP gains under one level policy.
type Progression struct {
	policy LevelPolicy
}

// NewProgression creates a Progression. A nil policy means cumulative.
func NewProgression(policy LevelPolicy) *Progression {
	if policy == nil {
		policy = CumulativePolicy{}
	}
	return &Progression{policy: policy}
}

// Policy returns the active level policy.
func (p *Progression) Policy() LevelPolicy {
	return p.policy
}

// Gain adds amount to the user's XP and recomputes the level.
// Negative amounts are ignored and produce a zero Gain.
func (p *Progression) Gain(u *User, amount int) Gain {
	if amount < 0 {
		return Gain{FromLevel: u.Level, ToLevel: u.Level, Total: u.XP}
	}

	from := u.Level
	if from < MinLevel {
		from = MinLevel
	}
	u.XP, u.Level = p.policy.Settle(u.XP.Add(XP(amount)), from)

	return Gain{
		Amount:    amount,
		FromLevel: from,
		ToLevel:   u.Level,
		Total:     u.XP,
	}
}

// Normalize settles a user loaded from storage so that its level agrees with
// the active policy.
func (p *Progression) Normalize(u *User) {
	u.XP, u.Level = p.policy.Settle(u.XP, u.Level)
}
