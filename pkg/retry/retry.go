// Package retry runs actions repeatedly according to composable strategies.
package retry

import "context"

// Action is a function to be performed in a retriable manner.
type Action func() error

// Retrier retries the provided action.
type Retrier interface {
	Retry(ctx context.Context, action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier that retries actions based off of the provided
// strategies. Without strategies it retries until the action succeeds or the
// context is done.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(ctx context.Context, action Action) (uint, error) {
	return Retry(ctx, action, r.strategies...)
}

// Retry executes the action until it succeeds, a strategy declines another
// attempt, or ctx is done. It returns the number of attempts made along with
// the last error.
//
// Strategies run in order, so strategies that sleep should be last.
func Retry(ctx context.Context, action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		err := action()
		if err == nil {
			return attempts, nil
		}

		for _, s := range strategies {
			if !s(attempts, err) {
				return attempts, err
			}
		}

		if ctx.Err() != nil {
			return attempts, err
		}
	}
}
