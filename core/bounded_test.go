package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: a bounded call yields the operation's value when it settles in time.
func TestCallWithBound_ReturnsValue(t *testing.T) {
	res := CallWithBound(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "ADMIN", nil
	})

	require.True(t, res.Ok())
	assert.Equal(t, "ADMIN", res.Value)
	assert.NoError(t, res.Err)
}

// Requirement: a slow operation settles as absent within the bound and keeps running.
func TestCallWithBound_TimeoutDoesNotCancelOperation(t *testing.T) {
	// Arrange
	release := make(chan struct{})
	var finished atomic.Bool
	completed := make(chan struct{})

	// Act
	start := time.Now()
	res := CallWithBound(context.Background(), 50*time.Millisecond, func(ctx context.Context) (int, error) {
		<-release
		if ctx.Err() == nil {
			finished.Store(true)
		}
		close(completed)
		return 1, nil
	})
	elapsed := time.Since(start)

	// Assert
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Less(t, elapsed, 500*time.Millisecond)

	close(release)
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("operation never completed after the bound elapsed")
	}
	assert.True(t, finished.Load(), "operation context should not be cancelled by the bound")
}

// Requirement: operation errors and panics settle as failed instead of propagating.
func TestCallWithBound_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		op      func(ctx context.Context) (int, error)
		wantErr error
	}{
		{
			name:    "error is reported as failed",
			op:      func(ctx context.Context) (int, error) { return 0, boom },
			wantErr: boom,
		},
		{
			name:    "panic is recovered",
			op:      func(ctx context.Context) (int, error) { panic("remote exploded") },
			wantErr: ErrOperationPanicked,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			res := CallWithBound(context.Background(), time.Second, test.op)

			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.ErrorIs(t, res.Err, test.wantErr)
			_, ok := res.Get()
			assert.False(t, ok)
		})
	}
}

// Requirement: a non-positive bound is immediately absent and never starts the operation.
func TestCallWithBound_NonPositiveBound(t *testing.T) {
	var called atomic.Bool

	res := CallWithBound(context.Background(), 0, func(ctx context.Context) (int, error) {
		called.Store(true)
		return 1, nil
	})

	assert.Equal(t, OutcomeTimeout, res.Outcome)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called.Load())
}

// Requirement: caller cancellation ends the wait early without cancelling the operation.
func TestCallWithBound_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opCtx := make(chan context.Context, 1)
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := CallWithBound(ctx, time.Second, func(ctx context.Context) (int, error) {
		opCtx <- ctx
		<-release
		return 1, nil
	})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NoError(t, (<-opCtx).Err())
}

func TestBounds_WithDefaults(t *testing.T) {
	b := Bounds{RoleRead: 200 * time.Millisecond}.WithDefaults()

	assert.Equal(t, 200*time.Millisecond, b.RoleRead)
	assert.Equal(t, 3*time.Second, b.RegistrationWrite)
	assert.Equal(t, time.Second, b.ContentRead)
	assert.NoError(t, b.Validate())
	assert.ErrorIs(t, Bounds{RoleRead: -1}.Validate(), ErrInvalidBound)
}
