package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/retry/backoff"
)

type testSleeper struct {
	sleepTimes []time.Duration
}

func (s *testSleeper) Sleep(d time.Duration) {
	s.sleepTimes = append(s.sleepTimes, d)
}

func withTestSleeper(t *testing.T) *testSleeper {
	ts := &testSleeper{}
	sleeperImpl = ts
	t.Cleanup(func() { sleeperImpl = &realSleeper{} })
	return ts
}

func TestRetrier(t *testing.T) {
	retriableErr := errors.New("retriable")
	r := NewRetrier(Limit(5), RetriableErrors(retriableErr))

	attempts, err := r.Retry(context.Background(), func() error { return nil })
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(context.Background(), func() error { return errors.New("unknown") })
	assert.EqualError(t, err, "unknown")
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(context.Background(), func() error { return retriableErr })
	assert.Equal(t, retriableErr, err)
	assert.EqualValues(t, 5, attempts)
}

func TestRetry_Backoff(t *testing.T) {
	ts := withTestSleeper(t)

	var calls int
	attempts, err := Retry(context.Background(), func() error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return nil
	}, Limit(10), Backoff(backoff.BinaryExponential(time.Second), 3*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 4, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, ts.sleepTimes)
}

func TestRetry_Jitter(t *testing.T) {
	ts := withTestSleeper(t)

	_, err := Retry(context.Background(), func() error { return errors.New("err") },
		Limit(50),
		BackoffWithJitter(backoff.Constant(100*time.Millisecond), time.Second, 0.1),
	)
	assert.Error(t, err)
	require.Len(t, ts.sleepTimes, 49)
	for _, d := range ts.sleepTimes {
		assert.True(t, d >= 90*time.Millisecond && d <= 110*time.Millisecond, d)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	withTestSleeper(t)

	ctx, cancel := context.WithCancel(context.Background())
	attempts, err := Retry(ctx, func() error {
		cancel()
		return errors.New("failed")
	})
	assert.EqualError(t, err, "failed")
	assert.EqualValues(t, 1, attempts)

	attempts, err = Retry(ctx, func() error { return nil })
	assert.Equal(t, context.Canceled, err)
	assert.EqualValues(t, 0, attempts)
}
