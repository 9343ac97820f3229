package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codevia/codevia/internal/domain/shared"
)

func TestHandleEvent(t *testing.T) {
	m := New(false)

	events := []shared.Event{
		shared.NewXPGainedEvent("u1", 20, 20, shared.XPSourceQuiz),
		shared.NewXPGainedEvent("u1", 20, 40, shared.XPSourceQuiz),
		shared.NewXPGainedEvent("u1", 50, 90, shared.XPSourceDailyChallenge),
		shared.NewLevelUpEvent("u1", 1, 2),
		shared.NewQuizCompletedEvent("u1", "java-basics", "Java Basics", 2, 2, 40),
		shared.NewAchievementUnlockedEvent("u1", "First Quiz", "🎯 First Quiz", "Complete your first quiz"),
		shared.NewUserRegisteredEvent("u1", "alice", "a@b.c"),
		shared.NewDailyChallengeCompletedEvent("u1", time.Now(), 50),
		shared.NewUserDeletedEvent("u1", "a@b.c"),
	}
	for _, e := range events {
		require.NoError(t, m.HandleEvent(e))
	}

	assert.Equal(t, 40.0, testutil.ToFloat64(m.XPGranted.WithLabelValues(shared.XPSourceQuiz)))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.XPGranted.WithLabelValues(shared.XPSourceDailyChallenge)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LevelUps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuizzesGraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AchievementsUnlocked.WithLabelValues("First Quiz")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DailyChallengesClosed))
}

type recordingSubscriber struct {
	all []shared.EventHandler
}

func (r *recordingSubscriber) Subscribe(shared.EventType, shared.EventHandler) error { return nil }

func (r *recordingSubscriber) SubscribeAll(h shared.EventHandler) error {
	r.all = append(r.all, h)
	return nil
}

func TestSubscribe(t *testing.T) {
	m := New(false)
	sub := &recordingSubscriber{}

	require.NoError(t, m.Subscribe(sub))
	require.Len(t, sub.all, 1)

	require.NoError(t, sub.all[0](shared.NewLevelUpEvent("u1", 2, 3)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LevelUps))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(true)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "codevia_http_requests_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
