// Package metrics exposes Codevia's prometheus collectors: HTTP request
// metrics, progression counters fed from the event bus, and document store
// mirror failures.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codevia/codevia/internal/domain/shared"
)

// Namespace prefixes every metric name.
const Namespace = "codevia"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter        *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	XPGranted             *prometheus.CounterVec
	LevelUps              prometheus.Counter
	QuizzesGraded         prometheus.Counter
	AchievementsUnlocked  *prometheus.CounterVec
	StoreMirrorFailures   *prometheus.CounterVec
	UsersRegistered       prometheus.Counter
	DailyChallengesClosed prometheus.Counter
}

// New creates the collectors on a fresh registry. withRuntime adds the Go
// and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		XPGranted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "xp_granted_total",
				Help:      "Experience points granted, by source",
			},
			[]string{"source"},
		),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "level_ups_total",
			Help:      "Levels gained across all users",
		}),
		QuizzesGraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quizzes_graded_total",
			Help:      "Quizzes graded",
		}),
		AchievementsUnlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "achievements_unlocked_total",
				Help:      "Achievements unlocked, by name",
			},
			[]string{"name"},
		),
		StoreMirrorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "store_mirror_failures_total",
				Help:      "Failed asynchronous document store writes, by operation",
			},
			[]string{"op"},
		),
		UsersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "users_registered_total",
			Help:      "Users registered",
		}),
		DailyChallengesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "daily_challenges_completed_total",
			Help:      "Daily challenges completed",
		}),
	}

	m.registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.XPGranted,
		m.LevelUps,
		m.QuizzesGraded,
		m.AchievementsUnlocked,
		m.StoreMirrorFailures,
		m.UsersRegistered,
		m.DailyChallengesClosed,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT SUBSCRIBER
// ══════════════════════════════════════════════════════════════════════════════

// Subscribe feeds the progression counters from domain events.
func (m *Metrics) Subscribe(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(m.HandleEvent)
}

// HandleEvent updates counters for one event. Unknown events are ignored.
func (m *Metrics) HandleEvent(event shared.Event) error {
	switch e := event.(type) {
	case shared.XPGainedEvent:
		m.XPGranted.WithLabelValues(e.Source).Add(float64(e.Amount))
	case shared.LevelUpEvent:
		m.LevelUps.Inc()
	case shared.QuizCompletedEvent:
		m.QuizzesGraded.Inc()
	case shared.AchievementUnlockedEvent:
		m.AchievementsUnlocked.WithLabelValues(e.Name).Inc()
	case shared.UserRegisteredEvent:
		m.UsersRegistered.Inc()
	case shared.DailyChallengeCompletedEvent:
		m.DailyChallengesClosed.Inc()
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GIN INTEGRATION
// ══════════════════════════════════════════════════════════════════════════════

// Middleware records request count and duration per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
