package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/code-payments/anchor-bindings/pkg/retry/backoff"
)

// Strategy decides whether an action should be retried after a failed
// attempt. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit caps the total number of attempts. maxAttempts should be >= 1.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of the provided errors.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// NonRetriableErrors retries everything except errors matching one of the
// provided errors.
func NonRetriableErrors(nonRetriableErrors ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, e := range nonRetriableErrors {
			if errors.Is(err, e) {
				return false
			}
		}
		return true
	}
}

// Backoff sleeps according to the backoff strategy, capped at maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(strategy, maxBackoff, 0)
}

// BackoffWithJitter is Backoff with the capped delay randomly moved by up to
// jitter (a fraction of the delay) in either direction. A capped delay of
// 100ms with a jitter of 0.1 sleeps between 90ms and 110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := time.Duration(math.Min(float64(maxBackoff), float64(strategy(attempts))))
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + (rand.Float64()*2-1)*jitter))
		}

		sleeperImpl.Sleep(delay)
		return true
	}
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (r *realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = &realSleeper{}
