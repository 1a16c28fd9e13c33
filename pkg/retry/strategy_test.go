package retry

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	strategy := Limit(2)
	assert.True(t, strategy(1, errors.New("test")))
	assert.False(t, strategy(2, errors.New("test")))

	counter, err := Retry(context.Background(), func() error {
		return errors.New("test")
	}, Limit(2))
	assert.EqualError(t, err, "test")
	assert.EqualValues(t, 2, counter)
}

func TestRetriableErrors(t *testing.T) {
	retriable := []error{errors.New("a"), errors.New("b")}

	strategy := RetriableErrors(retriable...)
	for _, err := range retriable {
		assert.True(t, strategy(1, err))
		assert.True(t, strategy(1, errors.Wrap(err, "wrapper")))
	}
	assert.False(t, strategy(1, errors.New("unexpected")))
}

func TestNonRetriableErrors(t *testing.T) {
	nonRetriable := []error{errors.New("a"), errors.New("b")}

	strategy := NonRetriableErrors(nonRetriable...)
	for _, err := range nonRetriable {
		assert.False(t, strategy(1, err))
		assert.False(t, strategy(1, errors.Wrap(err, "wrapper")))
	}
	assert.True(t, strategy(1, errors.New("unexpected")))
}
