package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/pkg/circuitbreaker"
)

func connectedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.Connect(context.Background()))
	return s
}

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := connectedStore(t)

	_, err := s.Get(ctx, UsersCollection, "1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, s.Save(ctx, UsersCollection, "1", UserRecord{Username: "admin", Email: "admin@codevia.com"}))
	require.NoError(t, s.Save(ctx, UsersCollection, "2", UserRecord{Username: "student"}))

	rec, err := s.Get(ctx, UsersCollection, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, "admin", rec.Username)
	assert.NotNil(t, rec.UnlockedSkills)

	require.NoError(t, s.Update(ctx, UsersCollection, "1", UserRecord{Username: "root"}))
	all, err := s.GetAll(ctx, UsersCollection)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "root", all[0].Username)
	assert.Equal(t, "student", all[1].Username)

	require.NoError(t, s.Delete(ctx, UsersCollection, "1"))
	require.NoError(t, s.Delete(ctx, UsersCollection, "1"))
	assert.Equal(t, 1, s.Len(UsersCollection))
}

func TestMemoryStore_RequiresConnect(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.Ping(ctx), ErrNotConnected)
	assert.ErrorIs(t, s.Save(ctx, UsersCollection, "1", UserRecord{}), ErrNotConnected)
	assert.ErrorIs(t, s.Save(ctx, "", "1", UserRecord{}), ErrEmptyID)
}

func TestRecordFromUser_EmptySetsEncodeAsArrays(t *testing.T) {
	u, err := learner.NewUser(learner.NewUserParams{
		ID: "7", Username: "dave", Email: "dave@x.com", Password: "secret1",
	})
	require.NoError(t, err)

	data, err := json.Marshal(RecordFromUser(u))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unlockedSkills":[]`)
	assert.Contains(t, string(data), `"achievements":[]`)

	rec := RecordFromUser(&learner.User{ID: "8", UnlockedSkills: []string{}})
	assert.NotNil(t, rec.UnlockedSkills)
	assert.NotNil(t, rec.Achievements)
}

func TestRecordRoundTrip(t *testing.T) {
	u := &learner.User{
		ID:             "42",
		Username:       "alice",
		Email:          "alice@x.com",
		Password:       "hash",
		XP:             230,
		Level:          3,
		UnlockedSkills: []string{"Java Basics"},
		Achievements:   []string{"First Quiz"},
	}

	rec := RecordFromUser(u)
	assert.Equal(t, 230, rec.ExperiencePoint)
	assert.Equal(t, 3, rec.UserLevel)

	back := rec.ToUser()
	assert.Equal(t, u.ID, back.ID)
	assert.Equal(t, u.XP, back.XP)
	assert.Equal(t, u.Level, back.Level)
	assert.Equal(t, u.UnlockedSkills, back.UnlockedSkills)
	assert.Equal(t, u.Achievements, back.Achievements)

	empty := UserRecord{ID: "x", UserLevel: 0, ExperiencePoint: -5}.ToUser()
	assert.Equal(t, learner.MinLevel, empty.Level)
	assert.Equal(t, learner.XP(0), empty.XP)
	assert.NotNil(t, empty.Achievements)
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, string, string, UserRecord) error {
	return errors.New("quota exceeded")
}

func (failingStore) Delete(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestMirror_WritesInBackground(t *testing.T) {
	store := connectedStore(t)
	m := NewMirror(store, MirrorConfig{}, nil)

	u := &learner.User{ID: "7", Username: "bob", Email: "bob@x.com", Level: 1}
	m.Save(u)
	m.Wait()

	rec, err := store.Get(context.Background(), UsersCollection, "7")
	require.NoError(t, err)
	assert.Equal(t, "bob", rec.Username)

	u.XP = 40
	m.Update(u)
	m.Wait()
	rec, err = store.Get(context.Background(), UsersCollection, "7")
	require.NoError(t, err)
	assert.Equal(t, 40, rec.ExperiencePoint)

	m.Delete("7")
	m.Wait()
	assert.Zero(t, store.Len(UsersCollection))
	assert.Zero(t, m.Failed())
	assert.Zero(t, m.Pending())
}

// slowStore delays saves and updates so that earlier writes finish last
// unless the mirror keeps them in order.
type slowStore struct {
	*MemoryStore
	delay func(rec UserRecord) time.Duration
}

func (s slowStore) Save(ctx context.Context, coll, id string, rec UserRecord) error {
	time.Sleep(s.delay(rec))
	return s.MemoryStore.Save(ctx, coll, id, rec)
}

func (s slowStore) Update(ctx context.Context, coll, id string, rec UserRecord) error {
	time.Sleep(s.delay(rec))
	return s.MemoryStore.Update(ctx, coll, id, rec)
}

func TestMirror_CreateThenDeleteLeavesNoRecord(t *testing.T) {
	store := connectedStore(t)
	slow := slowStore{store, func(UserRecord) time.Duration { return 20 * time.Millisecond }}
	m := NewMirror(slow, MirrorConfig{}, nil)

	m.Save(&learner.User{ID: "9", Username: "dave", Email: "dave@x.com", Level: 1})
	m.Delete("9")
	m.Wait()

	_, err := store.Get(context.Background(), UsersCollection, "9")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Zero(t, m.Failed())
}

func TestMirror_UpdatesApplyInCallOrder(t *testing.T) {
	store := connectedStore(t)
	// Lower XP sleeps longer, so reordered writes would leave an early value.
	slow := slowStore{store, func(rec UserRecord) time.Duration {
		return time.Duration(100-rec.ExperiencePoint) * time.Millisecond / 4
	}}
	m := NewMirror(slow, MirrorConfig{}, nil)

	u := &learner.User{ID: "9", Username: "dave", Email: "dave@x.com", Level: 1}
	for i := 1; i <= 5; i++ {
		u.XP = learner.XP(i * 20)
		m.Update(u)
	}
	m.Update(&learner.User{ID: "10", Username: "erin", Email: "erin@x.com", Level: 1, XP: 5})
	m.Wait()

	rec, err := store.Get(context.Background(), UsersCollection, "9")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.ExperiencePoint)

	rec, err = store.Get(context.Background(), UsersCollection, "10")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.ExperiencePoint)
	assert.Zero(t, m.Pending())
}

func TestMirror_FailuresAreCountedNotRaised(t *testing.T) {
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_mirror_failures_total",
	}, []string{"op"})

	m := NewMirror(failingStore{connectedStore(t)}, MirrorConfig{Failures: failures}, nil)

	m.Save(&learner.User{ID: "1"})
	m.Save(&learner.User{ID: "2"})
	m.Delete("1")
	m.Wait()

	assert.Equal(t, int64(3), m.Failed())
	assert.Equal(t, float64(2), testutil.ToFloat64(failures.WithLabelValues(OpSave)))
	assert.Equal(t, float64(1), testutil.ToFloat64(failures.WithLabelValues(OpDelete)))
}

type countingStore struct {
	failingStore
	saves *atomic.Int64
}

func (s countingStore) Save(ctx context.Context, coll, id string, rec UserRecord) error {
	s.saves.Add(1)
	return s.failingStore.Save(ctx, coll, id, rec)
}

func TestMirror_BreakerShortCircuitsWrites(t *testing.T) {
	saves := &atomic.Int64{}
	store := countingStore{failingStore{connectedStore(t)}, saves}
	breaker := circuitbreaker.New("docstore", circuitbreaker.WithFailureThreshold(2))

	m := NewMirror(store, MirrorConfig{Breaker: breaker}, nil)
	for i := 0; i < 4; i++ {
		m.Save(&learner.User{ID: "1"})
		m.Wait()
	}

	assert.Equal(t, int64(2), saves.Load(), "open circuit keeps writes away from the store")
	assert.Equal(t, int64(4), m.Failed())
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.Equal(t, 2, breaker.Counts().Rejected)
}

func TestMirror_NilStoreIsNoop(t *testing.T) {
	m := NewMirror(nil, MirrorConfig{}, nil)
	m.Save(&learner.User{ID: "1"})
	m.Wait()
	assert.Zero(t, m.Pending())
	assert.Nil(t, m.Store())
}

func TestMirror_DriverAndConnection(t *testing.T) {
	ctx := context.Background()

	var none *Mirror
	assert.Equal(t, "none", none.Driver())
	assert.False(t, none.Connected(ctx))

	store := NewMemoryStore()
	m := NewMirror(store, MirrorConfig{}, nil)
	assert.Equal(t, DriverMemory, m.Driver())
	assert.False(t, m.Connected(ctx))

	require.NoError(t, store.Connect(ctx))
	assert.True(t, m.Connected(ctx))
}
