package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 1000; i++ {
		allowed, err := l.Allow("")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.NoError(t, l.Wait(context.Background(), ""))
	}
}

func TestLocalRateLimiter_Allow(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for _, key := range []string{"getAccountInfo", "getMultipleAccounts"} {
		for i := 0; i < 2; i++ {
			allowed, err := l.Allow(key)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := l.Allow(key)
		require.NoError(t, err)
		assert.False(t, allowed)
	}
}

func TestLocalRateLimiter_FractionalRate(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(0.5))

	allowed, err := l.Allow("a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow("a")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLocalRateLimiter_Wait(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(1))
	require.NoError(t, l.Wait(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "a"))
}
