package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/anchor-bindings/pkg/config"
)

func TestConfig(t *testing.T) {
	const key = "ENV_CONFIG_TEST_VAR"

	t.Setenv(key, "value")
	v, err := NewConfig(key).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	// Keys are upper cased.
	v, err = NewConfig("env_config_test_var").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	t.Setenv(key, "")
	v, err = NewConfig(key).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	t.Setenv("ENV_CONFIG_TEST_BOOL", "true")
	t.Setenv("ENV_CONFIG_TEST_DURATION", "250ms")

	assert.True(t, NewBoolConfig("ENV_CONFIG_TEST_BOOL", false).Get(context.Background()))
	assert.Equal(t, 250*time.Millisecond, NewDurationConfig("ENV_CONFIG_TEST_DURATION", time.Second).Get(context.Background()))
	assert.EqualValues(t, 42, NewUint64Config("ENV_CONFIG_TEST_MISSING", 42).Get(context.Background()))
}
