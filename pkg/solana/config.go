package solana

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// ClientConfig configures the RPC client built by NewFromConfig.
type ClientConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Commitment string `mapstructure:"commitment"`

	// RequestsPerSecond throttles each RPC method independently. Zero
	// disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	MaxRetries  uint          `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

var defaultClientConfig = ClientConfig{
	Endpoint:   string(EnvironmentDev),
	Commitment: confirmationStatusConfirmed,

	RequestsPerSecond: 0,

	MaxRetries:  2,
	BaseBackoff: time.Second,
	MaxBackoff:  10 * time.Second,
}

// LoadClientConfig reads the client config from the optional config file
// and the environment, on top of the defaults.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	v := viper.New()

	_ = v.BindEnv("endpoint", "SOLANA_RPC_ENDPOINT")
	_ = v.BindEnv("commitment", "SOLANA_COMMITMENT")
	_ = v.BindEnv("requests_per_second", "SOLANA_RPC_REQUESTS_PER_SECOND")
	_ = v.BindEnv("max_retries", "SOLANA_RPC_MAX_RETRIES")
	_ = v.BindEnv("base_backoff", "SOLANA_RPC_BASE_BACKOFF")
	_ = v.BindEnv("max_backoff", "SOLANA_RPC_MAX_BACKOFF")

	if len(configPath) > 0 {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.Wrap(err, "failed to check if config exists")
		}

		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
	}

	config := defaultClientConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.Endpoint) == 0 {
		return nil, errors.New("must specify an rpc endpoint")
	}
	if _, err := CommitmentFromString(config.Commitment); err != nil {
		return nil, err
	}
	if config.RequestsPerSecond < 0 {
		return nil, errors.New("requests per second must be non-negative")
	}

	return &config, nil
}

// CommitmentLevel returns the configured commitment.
func (c *ClientConfig) CommitmentLevel() Commitment {
	commitment, err := CommitmentFromString(c.Commitment)
	if err != nil {
		return CommitmentConfirmed
	}
	return commitment
}
