package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codevia/codevia/internal/domain/shared"
)

func newTestUser(t *testing.T) *User {
	t.Helper()
	u, err := NewUser(NewUserParams{
		ID:       "u1",
		Username: "alice",
		Email:    "alice@x.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func TestCumulativePolicy_GainAddsExactly(t *testing.T) {
	prog := NewProgression(CumulativePolicy{})

	for _, g := range []int{0, 1, 20, 99, 100, 250, 1000} {
		u := newTestUser(t)
		u.XP = 35
		before := u.XP

		gain := prog.Gain(u, g)

		assert.Equal(t, before+XP(g), u.XP, "gain %d", g)
		assert.Equal(t, Level(int(u.XP)/100+1), u.Level, "gain %d", g)
		assert.Equal(t, g, gain.Amount)
	}
}

func TestCumulativePolicy_LevelBoundaries(t *testing.T) {
	tests := []struct {
		xp    XP
		level Level
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{1050, 11},
	}

	for _, tt := range tests {
		_, level := CumulativePolicy{}.Settle(tt.xp, 1)
		assert.Equal(t, tt.level, level, "xp=%d", tt.xp)
	}
}

func TestRolloverPolicy_Settle(t *testing.T) {
	tests := []struct {
		name      string
		xp        XP
		level     Level
		wantXP    XP
		wantLevel Level
	}{
		{"below threshold", 99, 1, 99, 1},
		{"exact threshold", 100, 1, 0, 2},
		{"carry over", 150, 1, 50, 2},
		{"two levels", 300, 1, 0, 3},
		{"level two needs 200", 199, 2, 199, 2},
		{"zero level clamps", 50, 0, 50, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xp, level := RolloverPolicy{}.Settle(tt.xp, tt.level)
			assert.Equal(t, tt.wantXP, xp)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestRolloverPolicy_ConservesGrantedXP(t *testing.T) {
	prog := NewProgression(RolloverPolicy{})
	u := newTestUser(t)

	granted := 0
	for _, g := range []int{40, 70, 20, 500, 5, 333} {
		gain := prog.Gain(u, g)
		granted += g
		assert.Equal(t, gain.ToLevel, u.Level)
	}

	spent := 0
	for l := MinLevel; l < u.Level; l++ {
		spent += int(l) * XPPerLevel
	}
	assert.Equal(t, granted, int(u.XP)+spent)
	assert.Less(t, int(u.XP), int(u.Level)*XPPerLevel)
}

func TestProgression_NegativeGainIgnored(t *testing.T) {
	for _, policy := range []LevelPolicy{CumulativePolicy{}, RolloverPolicy{}} {
		prog := NewProgression(policy)
		u := newTestUser(t)
		u.XP = 40

		gain := prog.Gain(u, -30)

		assert.Equal(t, XP(40), u.XP, policy.Name())
		assert.Equal(t, MinLevel, u.Level, policy.Name())
		assert.False(t, gain.LeveledUp())
		assert.Zero(t, gain.Amount)
	}
}

func TestGain_Levels(t *testing.T) {
	prog := NewProgression(CumulativePolicy{})
	u := newTestUser(t)

	gain := prog.Gain(u, 320)

	assert.True(t, gain.LeveledUp())
	assert.Equal(t, 3, gain.LevelsGained())
	assert.Equal(t, []Level{2, 3, 4}, gain.Levels())
	assert.Equal(t, XP(320), gain.Total)

	none := prog.Gain(u, 10)
	assert.Nil(t, none.Levels())
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCumulative, p.Name())

	p, err = PolicyByName(" Rollover ")
	require.NoError(t, err)
	assert.Equal(t, PolicyRollover, p.Name())

	_, err = PolicyByName("exponential")
	assert.Error(t, err)
}

func TestProgression_Normalize(t *testing.T) {
	u := newTestUser(t)
	u.XP = 250
	u.Level = 1

	NewProgression(nil).Normalize(u)

	assert.Equal(t, Level(3), u.Level)
	assert.Equal(t, XP(250), u.XP)
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
		want     error
	}{
		{"valid", "alice", "alice@x.com", "secret1", nil},
		{"blank username", "  ", "alice@x.com", "secret1", shared.ErrEmptyUsername},
		{"missing at", "alice", "alice.x.com", "secret1", shared.ErrInvalidEmail},
		{"missing dot", "alice", "alice@xcom", "secret1", shared.ErrInvalidEmail},
		{"short password", "alice", "alice@x.com", "12345", shared.ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.username, tt.email, tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestUser_SetsAreIdempotent(t *testing.T) {
	u := newTestUser(t)

	assert.True(t, u.AddSkill("OOP"))
	assert.False(t, u.AddSkill("oop"))
	assert.True(t, u.HasSkill("Oop"))
	assert.Equal(t, []string{"OOP"}, u.UnlockedSkills)

	assert.True(t, u.AddAchievement("First Quiz"))
	assert.False(t, u.AddAchievement("First Quiz"))
	assert.Len(t, u.Achievements, 1)
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := newTestUser(t)
	u.AddSkill("Java Basics")

	c := u.Clone()
	c.AddSkill("OOP")
	c.XP = 500

	assert.Equal(t, []string{"Java Basics"}, u.UnlockedSkills)
	assert.Equal(t, XP(0), u.XP)
}
