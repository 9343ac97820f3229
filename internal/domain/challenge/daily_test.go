package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codevia/codevia/pkg/timeutil"
)

func TestDailyChallenge_CompletesOnce(t *testing.T) {
	clock := timeutil.NewManualClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	d := New(clock, DefaultConfig())

	assert.False(t, d.IncrementProgress())
	assert.False(t, d.IncrementProgress())
	assert.True(t, d.IncrementProgress())

	st := d.Status()
	assert.True(t, st.Completed)
	assert.Equal(t, 3, st.Answered)
	assert.Equal(t, 3, st.Threshold)
	assert.Equal(t, 0, st.Remaining())

	assert.False(t, d.IncrementProgress())
	assert.Equal(t, 3, d.Status().Answered)
	assert.Equal(t, StateCompleted, d.State())
}

func TestDailyChallenge_ResetsOnNewDay(t *testing.T) {
	clock := timeutil.NewManualClock(time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC))
	d := New(clock, DefaultConfig())

	d.IncrementProgress()
	d.IncrementProgress()
	d.IncrementProgress()
	assert.True(t, d.Status().Completed)

	clock.Advance(2 * time.Hour)

	st := d.Status()
	assert.False(t, st.Completed)
	assert.Zero(t, st.Answered)
	assert.Equal(t, 3, st.Remaining())
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), st.Date)

	assert.False(t, d.IncrementProgress())
	assert.Equal(t, 1, d.Status().Answered)
}

func TestDailyChallenge_ResetIfNewDay(t *testing.T) {
	clock := timeutil.NewManualClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))
	d := New(clock, DefaultConfig())

	assert.False(t, d.ResetIfNewDay())
	clock.AddDays(1)
	assert.True(t, d.ResetIfNewDay())
	assert.False(t, d.ResetIfNewDay())
}

func TestDailyChallenge_Config(t *testing.T) {
	clock := timeutil.NewManualClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))

	d := New(clock, Config{Threshold: 1, RewardXP: 10})
	assert.True(t, d.IncrementProgress())
	assert.Equal(t, 10, d.RewardXP())

	d = New(clock, Config{})
	assert.Equal(t, DefaultThreshold, d.Status().Threshold)
}
