package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codevia/codevia/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{EnableMetrics: true})
}

func TestInMemoryEventBus_SubscribeAndPublish(t *testing.T) {
	bus := syncBus()

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", 1, 2)))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u1", 20, 120, shared.XPSourceQuiz)))

	assert.Equal(t, []shared.EventType{shared.EventLevelUp}, typed)
	assert.Equal(t, []shared.EventType{shared.EventLevelUp, shared.EventXPGained}, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
	assert.Equal(t, int64(1), bus.Metrics().Published(shared.EventLevelUp))
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := syncBus()

	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

func TestInMemoryEventBus_HandlerErrorsAreSwallowed(t *testing.T) {
	bus := syncBus()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))

	assert.NoError(t, bus.Publish(shared.NewUserDeletedEvent("u1", "a@b.c")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerFailures)
	assert.Equal(t, 0.0, snap.HandlerSuccessRate)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(syncBus().logger)(func(shared.Event) error { panic("x") })

	err := h(shared.NewLevelUpEvent("u1", 1, 2))
	assert.ErrorIs(t, err, ErrHandlerPanic)
}

func TestInMemoryEventBus_Use(t *testing.T) {
	bus := syncBus()

	var order []string
	bus.Use(func(next shared.EventHandler) shared.EventHandler {
		return func(e shared.Event) error {
			order = append(order, "mw")
			return next(e)
		}
	})
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		order = append(order, "handler")
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", 1, 2)))
	assert.Equal(t, []string{"mw", "handler"}, order)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var count atomic.Int32
	var mu sync.Mutex
	seen := map[string]bool{}
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count.Add(1)
		mu.Lock()
		seen[e.AggregateID()] = true
		mu.Unlock()
		return nil
	}))

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, bus.Publish(shared.NewLevelUpEvent(id, 1, 2)))
	}
	bus.Wait()

	assert.Equal(t, int32(4), count.Load())
	assert.Len(t, seen, 4)
}

func TestInMemoryEventBus_Close(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		handled.Add(1)
		return nil
	}))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u1", 1, 2)))

	require.NoError(t, bus.Close())
	assert.Equal(t, int32(1), handled.Load())

	select {
	case <-bus.Done():
	default:
		t.Fatal("Done channel should be closed")
	}

	assert.ErrorIs(t, bus.Publish(shared.NewLevelUpEvent("u1", 2, 3)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close())
}
