package docstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/pkg/circuitbreaker"
	"github.com/codevia/codevia/pkg/logger"
)

// Mirror operation labels.
const (
	OpSave   = "save"
	OpUpdate = "update"
	OpDelete = "delete"
)

// DefaultMirrorTimeout bounds each background write.
const DefaultMirrorTimeout = 10 * time.Second

// ══════════════════════════════════════════════════════════════════════════════
// MIRROR
// Fire-and-forget replication of directory writes into a Store.
// Callers never wait and never see store errors; failures are logged and
// counted. Writes for one document land in call order; different documents
// are written in parallel.
// ══════════════════════════════════════════════════════════════════════════════

// MirrorConfig configures a Mirror.
type MirrorConfig struct {
	Collection string
	Timeout    time.Duration

	// Failures, if set, is incremented with the op label on every failed
	// write.
	Failures *prometheus.CounterVec

	// Breaker, if set, guards every write. Writes rejected by an open
	// circuit count as failures without reaching the store.
	Breaker *circuitbreaker.CircuitBreaker
}

// Mirror writes user records to a Store in background goroutines.
type Mirror struct {
	store      Store
	collection string
	timeout    time.Duration
	failures   *prometheus.CounterVec
	breaker    *circuitbreaker.CircuitBreaker
	log        *logger.Logger

	mu     sync.Mutex
	queues map[string]*writeQueue

	wg      sync.WaitGroup
	pending atomic.Int64
	failed  atomic.Int64
}

// writeQueue holds the writes waiting for one document. A queue exists only
// while a goroutine is draining it.
type writeQueue struct {
	writes []queuedWrite
}

type queuedWrite struct {
	op    string
	write func(ctx context.Context) error
}

// NewMirror creates a Mirror. A nil store makes every call a no-op.
func NewMirror(store Store, cfg MirrorConfig, log *logger.Logger) *Mirror {
	if cfg.Collection == "" {
		cfg.Collection = UsersCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMirrorTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Mirror{
		store:      store,
		collection: cfg.Collection,
		timeout:    cfg.Timeout,
		failures:   cfg.Failures,
		breaker:    cfg.Breaker,
		queues:     make(map[string]*writeQueue),
		log:        log.With(logger.Component("docstore_mirror")),
	}
}

// Store returns the mirrored store, possibly nil.
func (m *Mirror) Store() Store {
	return m.store
}

// Collection returns the target collection.
func (m *Mirror) Collection() string {
	return m.collection
}

// Driver returns the store's driver name, or "none" without a store.
func (m *Mirror) Driver() string {
	if m == nil || m.store == nil {
		return "none"
	}
	return m.store.Name()
}

// Connected pings the store.
func (m *Mirror) Connected(ctx context.Context) bool {
	if m == nil || m.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.store.Ping(ctx) == nil
}

// Save mirrors a newly created user.
func (m *Mirror) Save(u *learner.User) {
	rec := RecordFromUser(u)
	m.run(OpSave, rec.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, m.collection, rec.ID, rec)
	})
}

// Update mirrors changes to an existing user.
func (m *Mirror) Update(u *learner.User) {
	rec := RecordFromUser(u)
	m.run(OpUpdate, rec.ID, func(ctx context.Context) error {
		return m.store.Update(ctx, m.collection, rec.ID, rec)
	})
}

// Delete mirrors a removed user.
func (m *Mirror) Delete(id string) {
	m.run(OpDelete, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, m.collection, id)
	})
}

// Wait blocks until every write started so far has finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// Pending returns the number of writes in flight.
func (m *Mirror) Pending() int64 {
	return m.pending.Load()
}

// Failed returns the number of writes that failed since creation.
func (m *Mirror) Failed() int64 {
	return m.failed.Load()
}

func (m *Mirror) run(op, id string, write func(ctx context.Context) error) {
	if m.store == nil {
		return
	}

	m.wg.Add(1)
	m.pending.Add(1)

	m.mu.Lock()
	q, draining := m.queues[id]
	if !draining {
		q = &writeQueue{}
		m.queues[id] = q
	}
	q.writes = append(q.writes, queuedWrite{op: op, write: write})
	m.mu.Unlock()

	if !draining {
		go m.drain(id, q)
	}
}

// drain applies queued writes for id one at a time until the queue is empty.
func (m *Mirror) drain(id string, q *writeQueue) {
	for {
		m.mu.Lock()
		if len(q.writes) == 0 {
			delete(m.queues, id)
			m.mu.Unlock()
			return
		}
		next := q.writes[0]
		q.writes = q.writes[1:]
		m.mu.Unlock()

		m.apply(next.op, id, next.write)
	}
}

func (m *Mirror) apply(op, id string, write func(ctx context.Context) error) {
	defer m.wg.Done()
	defer m.pending.Add(-1)

	// Detached from the caller: the request may be long gone.
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	var err error
	if m.breaker != nil {
		err = m.breaker.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		m.failed.Add(1)
		if m.failures != nil {
			m.failures.WithLabelValues(op).Inc()
		}
		if circuitbreaker.IsRejection(err) {
			m.log.Debug("document store write skipped",
				logger.Operation(op),
				logger.DocumentID(id),
				logger.Err(err),
			)
			return
		}
		m.log.Warn("document store write failed",
			logger.Operation(op),
			logger.DocumentID(id),
			logger.Collection(m.collection),
			logger.StoreDriver(m.store.Name()),
			logger.Err(err),
		)
		return
	}

	m.log.Debug("document store write completed",
		logger.Operation(op),
		logger.DocumentID(id),
		logger.Latency(time.Since(start)),
	)
}
