package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/fs"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

func TestLocalConfig(t *testing.T) {
	ctx := context.Background()
	cfg := &config.RuntimeConfig{
		DataDir:       t.TempDir(),
		KnownNetworks: []config.Network{{Name: "anvil"}, {Name: "sepolia"}},
		SaltStrategy:  "hashed",
	}
	store := fs.NewLocalConfigStoreAdapter(cfg)

	_, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
	assert.ErrorContains(t, err, "no config file found")

	set := usecase.NewSetConfig(cfg, store)

	result, err := set.Run(ctx, usecase.SetConfigParams{Key: "network", Value: "Sepolia"})
	require.NoError(t, err)
	assert.Equal(t, config.ConfigKeyNetwork, result.Key)
	assert.Equal(t, "sepolia", result.Value)
	assert.True(t, store.Exists())

	result, err = set.Run(ctx, usecase.SetConfigParams{Key: "salt-strategy", Value: "padded"})
	require.NoError(t, err)
	assert.Equal(t, config.ConfigKeySaltStrategy, result.Key)

	tests := []struct {
		key, value, err string
	}{
		{"namespace", "x", "unknown config key"},
		{"network", "nowhere", "unknown network"},
		{"salt", "sha3", "salt strategy"},
		{"version", "v9", "protocol version"},
	}
	for _, tt := range tests {
		_, err := set.Run(ctx, usecase.SetConfigParams{Key: tt.key, Value: tt.value})
		assert.ErrorContains(t, err, tt.err, "%s=%s", tt.key, tt.value)
	}

	shown, err := usecase.NewShowConfig(cfg, store).Run(ctx)
	require.NoError(t, err)
	assert.True(t, shown.Exists)
	assert.Equal(t, "sepolia", shown.Config.Network)
	assert.Equal(t, "padded", shown.Config.SaltStrategy)
	assert.Equal(t, "hashed", shown.SaltStrategy)

	removed, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
	require.NoError(t, err)
	assert.Equal(t, "sepolia", removed.RemovedValue)

	local, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, local.Network)
	assert.Equal(t, "padded", local.SaltStrategy)
}
