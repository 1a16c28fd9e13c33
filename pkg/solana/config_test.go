package solana

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientConfig_Defaults(t *testing.T) {
	config, err := LoadClientConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultClientConfig, *config)
	assert.Equal(t, CommitmentConfirmed, config.CommitmentLevel())
}

func TestLoadClientConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: http://localhost:8899\nmax_retries: 5\nmax_backoff: 3s\n"), 0o600))

	t.Setenv("SOLANA_COMMITMENT", "finalized")
	t.Setenv("SOLANA_RPC_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("SOLANA_RPC_BASE_BACKOFF", "250ms")

	config, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8899", config.Endpoint)
	assert.Equal(t, CommitmentFinalized, config.CommitmentLevel())
	assert.EqualValues(t, 5, config.MaxRetries)
	assert.Equal(t, 2.5, config.RequestsPerSecond)
	assert.Equal(t, 250*time.Millisecond, config.BaseBackoff)
	assert.Equal(t, 3*time.Second, config.MaxBackoff)

	// Environment takes precedence over the file
	t.Setenv("SOLANA_RPC_ENDPOINT", string(EnvironmentProd))
	config, err = LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, string(EnvironmentProd), config.Endpoint)
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("SOLANA_COMMITMENT", "max")
	_, err = LoadClientConfig("")
	assert.Error(t, err)
}
