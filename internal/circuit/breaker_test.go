package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufs/ufs/pkg/logging"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
	assert.Equal(t, "UNKNOWN", State(999).String())
}

func TestNewCircuitBreakerAppliesDefaults(t *testing.T) {
	cb := NewCircuitBreaker("externalfs", Config{}, logging.Discard())
	assert.Equal(t, "externalfs", cb.Name())
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, uint32(1), cb.config.MaxRequests)
	assert.Equal(t, 60*time.Second, cb.config.Interval)
	assert.Equal(t, 60*time.Second, cb.config.Timeout)
	assert.NotNil(t, cb.config.ReadyToTrip)
	assert.NotNil(t, cb.config.IsSuccessful)
}

func TestExecuteWithContextPassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker("externalfs", Config{}, logging.Discard())
	called := false
	err := cb.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestExecuteWithContextTripsOnReadyToTrip(t *testing.T) {
	cb := NewCircuitBreaker("externalfs", Config{
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
	}, logging.Discard())

	failing := func(ctx context.Context) error { return errors.New("boom") }
	require.Error(t, cb.ExecuteWithContext(context.Background(), failing))
	require.Error(t, cb.ExecuteWithContext(context.Background(), failing))
	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run while breaker is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
}

func TestBreakerHalfOpensAfterTimeoutAndCloses(t *testing.T) {
	cb := NewCircuitBreaker("externalfs", Config{
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
		Timeout:     time.Millisecond,
	}, logging.Discard())

	require.Error(t, cb.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, cb.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
		return nil
	}))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestResetForcesClosed(t *testing.T) {
	cb := NewCircuitBreaker("externalfs", Config{
		ReadyToTrip: func(counts Counts) bool { return true },
	}, logging.Discard())
	require.Error(t, cb.ExecuteWithContext(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, uint32(0), cb.GetCounts().TotalFailures)
}
