package runtime

import (
	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
	"github.com/code-payments/code-escrow/pkg/solana/system"
)

const (
	envConfigPrefix = "SOLANA_RUNTIME_"

	LamportsPerByteYearConfigEnvName = envConfigPrefix + "LAMPORTS_PER_BYTE_YEAR"
	defaultLamportsPerByteYear       = system.DefaultLamportsPerByteYear

	ExemptionThresholdConfigEnvName = envConfigPrefix + "EXEMPTION_THRESHOLD"
	defaultExemptionThreshold       = system.DefaultExemptionThreshold

	MaxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4
)

type conf struct {
	lamportsPerByteYear config.Uint64
	exemptionThreshold  config.Uint64
	maxInvokeDepth      config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerByteYear: env.NewUint64Config(LamportsPerByteYearConfigEnvName, defaultLamportsPerByteYear),
			exemptionThreshold:  env.NewUint64Config(ExemptionThresholdConfigEnvName, defaultExemptionThreshold),
			maxInvokeDepth:      env.NewUint64Config(MaxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),
		}
	}
}

type testOverrides struct {
	maxInvokeDepth uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	maxInvokeDepth := uint64(defaultMaxInvokeDepth)
	if overrides.maxInvokeDepth > 0 {
		maxInvokeDepth = overrides.maxInvokeDepth
	}

	return func() *conf {
		return &conf{
			lamportsPerByteYear: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultLamportsPerByteYear)), defaultLamportsPerByteYear),
			exemptionThreshold:  wrapper.NewUint64Config(memory.NewConfig(uint64(defaultExemptionThreshold)), defaultExemptionThreshold),
			maxInvokeDepth:      wrapper.NewUint64Config(memory.NewConfig(maxInvokeDepth), defaultMaxInvokeDepth),
		}
	}
}
