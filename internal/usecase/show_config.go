package usecase

import (
	"context"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
)

// ShowConfigResult contains the result of showing configuration
type ShowConfigResult struct {
	Config     *config.LocalConfig
	ConfigPath string
	Exists     bool
	// Effective values after flags, environment and the project file.
	Network         string
	SaltStrategy    string
	ProtocolVersion string
	ConfigSource    string
}

// ShowConfig is a use case for showing configuration
type ShowConfig struct {
	cfg   *config.RuntimeConfig
	store LocalConfigStore
}

// NewShowConfig creates a new ShowConfig use case
func NewShowConfig(cfg *config.RuntimeConfig, store LocalConfigStore) *ShowConfig {
	return &ShowConfig{
		cfg:   cfg,
		store: store,
	}
}

// Run executes the show config use case
func (uc *ShowConfig) Run(ctx context.Context) (*ShowConfigResult, error) {
	exists := uc.store.Exists()

	local, err := uc.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := &ShowConfigResult{
		Config:          local,
		ConfigPath:      uc.store.GetPath(),
		Exists:          exists,
		SaltStrategy:    uc.cfg.SaltStrategy,
		ProtocolVersion: string(uc.cfg.ProtocolVersion),
		ConfigSource:    uc.cfg.ConfigSource,
	}
	if uc.cfg.Network != nil {
		result.Network = uc.cfg.Network.Name
	}
	return result, nil
}
