package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	return ctx.Err()
}

func TestBackoffSchedule(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(time.Second, 1))
	assert.Equal(t, 2*time.Second, Backoff(time.Second, 2))
	assert.Equal(t, 4*time.Second, Backoff(time.Second, 3))
	assert.Equal(t, time.Second, Backoff(time.Second, 0))
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 2, Sleep: clock.sleep}, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.waits)
}

func TestDoExhausts(t *testing.T) {
	clock := &fakeClock{}
	boom := errors.New("boom")
	var failures []int
	_, err := Do(context.Background(), Policy{
		MaxRetries: 2,
		Sleep:      clock.sleep,
		OnFailure: func(attempt, total int, err error) {
			assert.Equal(t, 3, total)
			failures = append(failures, attempt)
		},
	}, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, failures)
	assert.Len(t, clock.waits, 2)
}

func TestDoZeroRetriesMakesOneAttemptWithoutSleeping(t *testing.T) {
	clock := &fakeClock{}
	calls := 0
	_, err := Do(context.Background(), Policy{Sleep: clock.sleep}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.waits)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{MaxRetries: 5, BaseDelay: time.Hour}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
