package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker_Empty(t *testing.T) {
	status := NewCompositeHealthChecker("v1").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "v1", status.Version)
}

func TestCompositeHealthChecker_LivenessAndReadiness(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	done := make(chan struct{})

	c.AddCheck("store", NewStoreCheck(pingFunc(func(ctx context.Context) error { return nil })))
	c.AddReadinessCheck("bootstrap", NewBootstrapCheck(done))

	status := c.Check(context.Background())
	assert.True(t, status.Healthy, "pending bootstrap does not make the service unhealthy")
	assert.False(t, status.Ready)
	assert.Equal(t, "Some checks failed: bootstrap", status.Message)
	assert.Equal(t, ErrBootstrapPending.Error(), status.Checks["bootstrap"].Message)

	close(done)
	status = c.Check(context.Background())
	assert.True(t, status.Ready)
	assert.Equal(t, "All checks passed", status.Message)

	c.AddCheck("broken", NewStoreCheck(pingFunc(func(ctx context.Context) error { return errors.New("refused") })))
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "refused", status.Checks["broken"].Message)

	c.RemoveCheck("broken")
	assert.True(t, c.Check(context.Background()).Healthy)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Checks["slow"].Message, "deadline")
}
