package core

import (
	"context"
	"fmt"
	"time"
)

// Outcome is how a bounded call settled.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTimeout
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result carries the value of a bounded call, or the reason it is absent.
// Err is only set for OutcomeFailed.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

func (r Result[T]) Ok() bool {
	return r.Outcome == OutcomeOK
}

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Outcome == OutcomeOK
}

// CallWithBound runs op and waits at most bound for it to settle.
//
// A timeout or a failure of op is reported through the Result, never as a
// panic. op is not cancelled when the bound elapses: it receives a context
// detached from ctx's cancellation and may still complete (and write)
// afterwards. Cancelling ctx stops the wait early with OutcomeFailed.
//
// A non-positive bound settles as OutcomeTimeout without calling op.
func CallWithBound[T any](ctx context.Context, bound time.Duration, op func(ctx context.Context) (T, error)) Result[T] {
	start := time.Now()
	if bound <= 0 {
		return Result[T]{Outcome: OutcomeTimeout}
	}

	type settled struct {
		value T
		err   error
	}

	// buffered so a late op never blocks after we stop listening
	done := make(chan settled, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- settled{err: fmt.Errorf("%w: %v", ErrOperationPanicked, r)}
			}
		}()
		v, err := op(context.WithoutCancel(ctx))
		done <- settled{value: v, err: err}
	}()

	timer := time.NewTimer(bound)
	defer timer.Stop()

	select {
	case s := <-done:
		if s.err != nil {
			return Result[T]{Outcome: OutcomeFailed, Err: s.err, Elapsed: time.Since(start)}
		}
		return Result[T]{Value: s.value, Outcome: OutcomeOK, Elapsed: time.Since(start)}
	case <-timer.C:
		return Result[T]{Outcome: OutcomeTimeout, Elapsed: time.Since(start)}
	case <-ctx.Done():
		return Result[T]{Outcome: OutcomeFailed, Err: ctx.Err(), Elapsed: time.Since(start)}
	}
}

// Bounds are the per call-site limits for remote operations.
type Bounds struct {
	RegistrationWrite time.Duration `mapstructure:"registration_write"`
	RoleRead          time.Duration `mapstructure:"role_read"`
	ContentRead       time.Duration `mapstructure:"content_read"`
	SubscriberCheck   time.Duration `mapstructure:"subscriber_check"`
}

func DefaultBounds() Bounds {
	return Bounds{
		RegistrationWrite: 3000 * time.Millisecond,
		RoleRead:          800 * time.Millisecond,
		ContentRead:       1000 * time.Millisecond,
		SubscriberCheck:   1000 * time.Millisecond,
	}
}

// WithDefaults fills zero fields from DefaultBounds.
func (b Bounds) WithDefaults() Bounds {
	d := DefaultBounds()
	if b.RegistrationWrite == 0 {
		b.RegistrationWrite = d.RegistrationWrite
	}
	if b.RoleRead == 0 {
		b.RoleRead = d.RoleRead
	}
	if b.ContentRead == 0 {
		b.ContentRead = d.ContentRead
	}
	if b.SubscriberCheck == 0 {
		b.SubscriberCheck = d.SubscriberCheck
	}
	return b
}

func (b Bounds) Validate() error {
	if b.RegistrationWrite < 0 || b.RoleRead < 0 || b.ContentRead < 0 || b.SubscriberCheck < 0 {
		return ErrInvalidBound
	}
	return nil
}
