package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/create2"
)

// LocalConfigStore persists per-checkout defaults
type LocalConfigStore interface {
	Exists() bool
	Load(ctx context.Context) (*config.LocalConfig, error)
	Save(ctx context.Context, cfg *config.LocalConfig) error
	GetPath() string
}

// SetConfigParams contains parameters for setting configuration
type SetConfigParams struct {
	Key   string
	Value string
}

// SetConfigResult contains the result of setting configuration
type SetConfigResult struct {
	UpdatedConfig *config.LocalConfig
	ConfigPath    string
	Key           config.ConfigKey
	Value         string
	// Previous is the value the key held before; empty when unset.
	Previous string
}

// SetConfig is a use case for setting configuration values
type SetConfig struct {
	cfg   *config.RuntimeConfig
	store LocalConfigStore
}

// NewSetConfig creates a new SetConfig use case
func NewSetConfig(cfg *config.RuntimeConfig, store LocalConfigStore) *SetConfig {
	return &SetConfig{
		cfg:   cfg,
		store: store,
	}
}

// Run validates the value for its key and saves it.
func (uc *SetConfig) Run(ctx context.Context, params SetConfigParams) (*SetConfigResult, error) {
	key, err := parseConfigKey(params.Key)
	if err != nil {
		return nil, err
	}

	value, err := uc.validate(key, params.Value)
	if err != nil {
		return nil, err
	}

	local, err := uc.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	previous := local.Get(key)
	local.Set(key, value)

	if err := uc.store.Save(ctx, local); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return &SetConfigResult{
		UpdatedConfig: local,
		ConfigPath:    uc.store.GetPath(),
		Key:           key,
		Value:         value,
		Previous:      previous,
	}, nil
}

func (uc *SetConfig) validate(key config.ConfigKey, value string) (string, error) {
	switch key {
	case config.ConfigKeyNetwork:
		name := strings.ToLower(value)
		for _, n := range uc.cfg.KnownNetworks {
			if n.Name == name {
				return name, nil
			}
		}
		names := make([]string, len(uc.cfg.KnownNetworks))
		for i, n := range uc.cfg.KnownNetworks {
			names[i] = n.Name
		}
		return "", fmt.Errorf("unknown network %q (known: %s)", value, strings.Join(names, ", "))
	case config.ConfigKeySaltStrategy:
		s, err := create2.ParseSaltStrategy(value)
		return string(s), err
	case config.ConfigKeyProtocolVersion:
		v, err := models.ParseProtocolVersion(value)
		return string(v), err
	}
	return value, nil
}

func parseConfigKey(raw string) (config.ConfigKey, error) {
	key, ok := config.NormalizeConfigKey(raw)
	if !ok {
		valid := make([]string, 0, len(config.ValidConfigKeys()))
		for _, k := range config.ValidConfigKeys() {
			valid = append(valid, string(k))
		}
		return "", fmt.Errorf("unknown config key: %s\nAvailable keys: %s", raw, strings.Join(valid, ", "))
	}
	return key, nil
}
