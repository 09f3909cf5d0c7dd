package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wurst-Imperium/upload-backups/backuptypes"
)

// recordingSleeper records requested waits without blocking.
type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if s.err != nil {
		return s.err
	}
	s.waits = append(s.waits, d)
	return nil
}

func failTimes(n int) (Func, *int) {
	calls := 0
	return func(ctx context.Context, attempt int) error {
		calls++
		if attempt <= n {
			return errors.New("HTTP 500: boom")
		}
		return nil
	}, &calls
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name            string
		failures        int
		wantState       backuptypes.State
		wantAttempts    int
		wantRetries     int
		wantTransitions []backuptypes.State
	}{
		{
			name:         "success on first attempt",
			failures:     0,
			wantState:    backuptypes.StateSuccess,
			wantAttempts: 1,
			wantRetries:  0,
			wantTransitions: []backuptypes.State{
				backuptypes.StatePending,
				backuptypes.StateAttempting,
				backuptypes.StateSuccess,
			},
		},
		{
			name:         "success on third attempt",
			failures:     2,
			wantState:    backuptypes.StateSuccess,
			wantAttempts: 3,
			wantRetries:  2,
			wantTransitions: []backuptypes.State{
				backuptypes.StatePending,
				backuptypes.StateAttempting,
				backuptypes.StateAttempting,
				backuptypes.StateAttempting,
				backuptypes.StateSuccess,
			},
		},
		{
			name:         "all attempts fail",
			failures:     3,
			wantState:    backuptypes.StateFailed,
			wantAttempts: 3,
			wantRetries:  2,
			wantTransitions: []backuptypes.State{
				backuptypes.StatePending,
				backuptypes.StateAttempting,
				backuptypes.StateAttempting,
				backuptypes.StateAttempting,
				backuptypes.StateFailed,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			r := New(Policy{MaxAttempts: 3, Delay: 5 * time.Second}, WithSleeper(sleeper.Sleep))

			fn, calls := failTimes(tt.failures)
			out := r.Do(context.Background(), fn)

			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, tt.wantAttempts, out.Attempts)
			assert.Equal(t, tt.wantAttempts, *calls)
			assert.Equal(t, tt.wantRetries, out.Retries)
			assert.Equal(t, tt.wantTransitions, out.Transitions)
			assert.Len(t, sleeper.waits, tt.wantRetries)
			for _, w := range sleeper.waits {
				assert.Equal(t, 5*time.Second, w)
			}
			if tt.wantState == backuptypes.StateSuccess {
				assert.NoError(t, out.Err)
			} else {
				assert.EqualError(t, out.Err, "HTTP 500: boom")
			}
			assert.False(t, out.Cancelled)
		})
	}
}

func TestRetrier_OnRetryHook(t *testing.T) {
	sleeper := &recordingSleeper{}
	var hooked []int
	r := New(
		Policy{MaxAttempts: 3, Delay: time.Second},
		WithSleeper(sleeper.Sleep),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			assert.Error(t, err)
			assert.Equal(t, time.Second, delay)
			hooked = append(hooked, attempt)
		}),
	)

	fn, _ := failTimes(3)
	out := r.Do(context.Background(), fn)

	assert.Equal(t, backuptypes.StateFailed, out.State)
	assert.Equal(t, []int{1, 2}, hooked)
}

func TestRetrier_CancelledDuringWait(t *testing.T) {
	sleeper := &recordingSleeper{err: context.Canceled}
	r := New(Policy{MaxAttempts: 3, Delay: time.Second}, WithSleeper(sleeper.Sleep))

	fn, calls := failTimes(3)
	out := r.Do(context.Background(), fn)

	assert.Equal(t, backuptypes.StateFailed, out.State)
	assert.True(t, out.Cancelled)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 0, out.Retries)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestRetrier_CancelledDuringAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	r := New(Policy{MaxAttempts: 3, Delay: time.Second}, WithSleeper(sleeper.Sleep))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	out := r.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return ctx.Err()
	})

	assert.Equal(t, backuptypes.StateFailed, out.State)
	assert.True(t, out.Cancelled)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.waits)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestNew_ClampsPolicy(t *testing.T) {
	r := New(Policy{MaxAttempts: 0, Delay: -time.Second})
	assert.Equal(t, Policy{MaxAttempts: 1, Delay: 0}, r.Policy())
}

func TestSleep(t *testing.T) {
	t.Run("returns after the delay", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Sleep(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("zero delay does not block", func(t *testing.T) {
		assert.NoError(t, Sleep(context.Background(), 0))
	})
}
