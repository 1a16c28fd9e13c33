package anchor

import (
	"github.com/code-payments/anchor-bindings/pkg/config"
	"github.com/code-payments/anchor-bindings/pkg/config/env"
	"github.com/code-payments/anchor-bindings/pkg/config/memory"
	"github.com/code-payments/anchor-bindings/pkg/config/wrapper"
)

const (
	envConfigPrefix = "ANCHOR_"

	AllowTrailingBytesConfigEnvName = envConfigPrefix + "ALLOW_TRAILING_BYTES"
	defaultAllowTrailingBytes       = false

	FetchBatchSizeConfigEnvName = envConfigPrefix + "FETCH_BATCH_SIZE"
	defaultFetchBatchSize       = 100

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"
)

type conf struct {
	allowTrailingBytes config.Bool
	fetchBatchSize     config.Uint64
	commitment         config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			allowTrailingBytes: env.NewBoolConfig(AllowTrailingBytesConfigEnvName, defaultAllowTrailingBytes),
			fetchBatchSize:     env.NewUint64Config(FetchBatchSizeConfigEnvName, defaultFetchBatchSize),
			commitment:         env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
		}
	}
}

type testOverrides struct {
	allowTrailingBytes bool
	fetchBatchSize     uint64
	commitment         string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.fetchBatchSize == 0 {
		overrides.fetchBatchSize = defaultFetchBatchSize
	}
	if overrides.commitment == "" {
		overrides.commitment = defaultCommitment
	}

	return func() *conf {
		return &conf{
			allowTrailingBytes: wrapper.NewBoolConfig(memory.NewConfig(overrides.allowTrailingBytes), defaultAllowTrailingBytes),
			fetchBatchSize:     wrapper.NewUint64Config(memory.NewConfig(overrides.fetchBatchSize), defaultFetchBatchSize),
			commitment:         wrapper.NewStringConfig(memory.NewConfig(overrides.commitment), defaultCommitment),
		}
	}
}
