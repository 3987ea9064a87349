package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// First anvil development account.
const (
	anvilKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestKeyring(t *testing.T) {
	cfg := &config.RuntimeConfig{Roles: map[models.Role]string{
		models.RoleDeployer:       anvilKey,
		models.RoleVault:          "0x00000000000000000000000000000000000000aa",
		models.RoleUpgradeManager: "",
	}}
	k, err := NewKeyring(cfg)
	require.NoError(t, err)

	t.Run("private key role", func(t *testing.T) {
		addr, err := k.Address(models.RoleDeployer)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(anvilAddress), addr)
		assert.True(t, k.CanSign(models.RoleDeployer))

		key, err := k.PrivateKey(models.RoleDeployer)
		require.NoError(t, err)
		assert.Equal(t, addr, crypto.PubkeyToAddress(key.PublicKey))
	})

	t.Run("address-only role", func(t *testing.T) {
		addr, err := k.Address(models.RoleVault)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xaa"), addr)
		assert.False(t, k.CanSign(models.RoleVault))

		_, err = k.PrivateKey(models.RoleVault)
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
	})

	t.Run("unset roles are missing", func(t *testing.T) {
		_, err := k.Address(models.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
		_, err = k.Address(models.RoleUpgradeManager)
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
		assert.False(t, k.CanSign(models.RoleAdmin))
	})

	t.Run("roles in role order", func(t *testing.T) {
		assert.Equal(t, []models.Role{models.RoleDeployer, models.RoleVault}, k.Roles())
	})
}

func TestKeyringZeroAddress(t *testing.T) {
	k, err := NewKeyring(&config.RuntimeConfig{Roles: map[models.Role]string{
		models.RoleAdmin: "0x0000000000000000000000000000000000000000",
	}})
	require.NoError(t, err)

	_, err = k.Address(models.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrRoleZeroAddress)
	assert.False(t, k.CanSign(models.RoleAdmin))
}

func TestKeyringDryRun(t *testing.T) {
	k, err := NewKeyring(&config.RuntimeConfig{DryRun: true, Roles: map[models.Role]string{
		models.RoleAdmin: "0x00000000000000000000000000000000000000aa",
	}})
	require.NoError(t, err)
	assert.True(t, k.CanSign(models.RoleAdmin))
}

func TestKeyringInvalid(t *testing.T) {
	for name, value := range map[string]string{
		"short":        "0x1234",
		"not hex key":  "0xzz0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		"not hex addr": "0xzz000000000000000000000000000000000000aa",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewKeyring(&config.RuntimeConfig{Roles: map[models.Role]string{models.RoleDeployer: value}})
			assert.ErrorIs(t, err, domain.ErrInvalidPrivateKey)
		})
	}
}
