package processor

import (
	"crypto/ed25519"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
	"github.com/code-payments/code-escrow/pkg/solana/escrow"
)

const (
	envConfigPrefix = "ESCROW_"

	ProgramIdConfigEnvName = envConfigPrefix + "PROGRAM_ID"
)

var (
	defaultProgramId = escrow.PROGRAM_ID
)

type conf struct {
	programId config.PublicKey
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			programId: env.NewPublicKeyConfig(ProgramIdConfigEnvName, defaultProgramId),
		}
	}
}

// WithProgramId returns configuration for a deployment at program
func WithProgramId(program ed25519.PublicKey) ConfigProvider {
	return func() *conf {
		return &conf{
			programId: wrapper.NewPublicKeyConfig(memory.NewConfig(program), defaultProgramId),
		}
	}
}
