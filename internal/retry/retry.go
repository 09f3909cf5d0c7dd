// Package retry runs an operation under a fixed-delay retry budget and reports
// the result as an explicit Outcome instead of a bare error.
//
// The state machine is Pending -> Attempting -> {Success | Attempting | Failed}.
// Attempting -> Attempting happens only while attempts remain and is always
// preceded by a single wait of Policy.Delay.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
)

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// Policy bounds the number of attempts and the wait between them.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Outcome records how a retried operation ended.
type Outcome struct {
	// State is StateSuccess or StateFailed once Do returns
	State backuptypes.State

	// Attempts is the number of times the operation ran
	Attempts int

	// Retries is the number of completed waits between attempts
	Retries int

	// Err is the error of the last attempt, or the context error when cancelled
	Err error

	// Cancelled is set when the context ended the run before the budget was spent
	Cancelled bool

	// Transitions lists every state entered, starting with StatePending
	Transitions []backuptypes.State
}

// Retrier executes a Func according to a Policy.
type Retrier struct {
	policy  Policy
	sleep   backuptypes.Sleeper
	onRetry func(attempt int, err error, delay time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the default timer-based wait.
func WithSleeper(s backuptypes.Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// WithOnRetry registers a hook that runs after a failed attempt, right before
// the wait that precedes the next one.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier. A MaxAttempts below 1 is treated as 1.
func New(policy Policy, opts ...Option) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}

	r := &Retrier{
		policy: policy,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy the retrier was built with.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn until it succeeds or the attempt budget is spent.
// It never waits after the final attempt.
func (r *Retrier) Do(ctx context.Context, fn Func) *Outcome {
	out := &Outcome{
		State:       backuptypes.StatePending,
		Transitions: []backuptypes.State{backuptypes.StatePending},
	}

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		out.enter(backuptypes.StateAttempting)
		out.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			out.Err = nil
			out.enter(backuptypes.StateSuccess)
			return out
		}
		out.Err = err

		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		if r.onRetry != nil {
			r.onRetry(attempt, err, r.policy.Delay)
		}
		if serr := r.sleep(ctx, r.policy.Delay); serr != nil {
			out.Err = fmt.Errorf("retry wait interrupted after attempt %d: %w", attempt, serr)
			out.Cancelled = true
			break
		}
		out.Retries++
	}

	out.enter(backuptypes.StateFailed)
	return out
}

func (o *Outcome) enter(s backuptypes.State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
