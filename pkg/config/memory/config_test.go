package memory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/config"
)

func TestConfig(t *testing.T) {
	ctx := context.Background()

	c := NewConfig(nil)
	_, err := c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.Set(uint64(25))
	val, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), val)

	c.Set(false)
	val, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, val)

	unavailable := errors.New("unavailable")
	c.Fail(unavailable)
	_, err = c.Get(ctx)
	assert.Equal(t, unavailable, err)

	c.Fail(nil)
	c.Set(nil)
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.Shutdown()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}
