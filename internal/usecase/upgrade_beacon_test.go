package usecase_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/simnet"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

var (
	factoryAddr = common.HexToAddress("0xFac7000000000000000000000000000000000001")
	oldImpl     = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

// setupFactory places a wallet factory on the simnet and records it.
func setupFactory(t *testing.T, f *fixture, wf *simnet.WalletFactory) *simnet.Contract {
	t.Helper()
	c := f.net.Put(factoryAddr, "DeviceWalletFactory")
	require.NoError(t, wf.Install(c))
	f.record(t, models.UnitRecord{Name: "DeviceWalletFactory", Kind: models.KindUUPSProxy, Address: factoryAddr})
	return c
}

func upgradeParams() usecase.UpgradeParams {
	return usecase.UpgradeParams{
		Implementation: &models.Unit{Name: "DeviceWalletV2", Artifact: "DeviceWalletV2"},
	}
}

func TestUpgradeBeacon_UpgradesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager, _ := f.signers.Address(models.RoleUpgradeManager)
	factory := setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl, UpgradeManager: manager})

	result, err := f.upgrader().Run(ctx, upgradeParams())
	require.NoError(t, err)

	assert.Equal(t, models.UpgradeVerified, result.State)
	assert.Equal(t, []models.UpgradeState{
		models.UpgradeNotStarted,
		models.UpgradeImplementationDeployed,
		models.UpgradeSubmitted,
		models.UpgradeVerified,
	}, result.History)
	assert.True(t, result.Submitted)
	assert.False(t, result.ImplementationReused)
	assert.Equal(t, oldImpl, result.Previous)
	assert.Equal(t, result.Implementation, result.Reported)
	assert.Equal(t, result.Implementation, factory.AddressOf(simnet.KeyImplementation))
	assert.NotEqual(t, common.Hash{}, result.TxHash)

	submitted := len(f.net.Submissions())

	again, err := f.upgrader().Run(ctx, upgradeParams())
	require.NoError(t, err)
	assert.Equal(t, models.UpgradeVerified, again.State)
	assert.True(t, again.ImplementationReused)
	assert.False(t, again.Submitted)
	assert.Equal(t, result.Implementation, again.Implementation)
	assert.Equal(t, result.Reported, again.Reported)
	assert.Len(t, f.net.Submissions(), submitted, "second run sends nothing")
	assert.Equal(t, 1, f.creations("DeviceWalletV2"))

	record, err := f.records.Load(ctx, "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	require.Len(t, record.Upgrades, 2)
	assert.Equal(t, models.UpgradeVerified, record.Upgrades[0].State)
	assert.Equal(t, oldImpl, record.Upgrades[0].Previous)
	impl, ok := record.Unit("DeviceWalletV2")
	require.True(t, ok)
	assert.Equal(t, models.OriginUpgrade, impl.Origin)
}

func TestUpgradeBeacon_RefusesPlanUnitAsImplementation(t *testing.T) {
	f := newFixture(t)
	manager, _ := f.signers.Address(models.RoleUpgradeManager)
	setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl, UpgradeManager: manager})
	// the plan's own implementation unit, already behind the beacon
	f.record(t, models.UnitRecord{Name: "DeviceWalletV2", Kind: models.KindContract, Artifact: "DeviceWalletV2", Address: oldImpl})

	result, err := f.upgrader().Run(context.Background(), upgradeParams())
	assert.ErrorIs(t, err, domain.ErrUnitRecorded)
	require.NotNil(t, result)
	assert.Equal(t, models.UpgradeNotStarted, result.State)
	assert.False(t, result.Submitted)
	assert.Empty(t, f.net.Submissions())
}

func TestUpgradeBeacon_VerificationFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl, IgnoreUpgrades: true})

	result, err := f.upgrader().Run(ctx, upgradeParams())
	require.Error(t, err)

	var verr *domain.UpgradeVerificationFailedError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, oldImpl, verr.Actual)
	assert.Equal(t, result.Implementation, verr.Expected)

	require.NotNil(t, result)
	assert.Equal(t, models.UpgradeVerificationFailed, result.State)
	assert.True(t, result.Submitted)

	record, err := f.records.Load(ctx, "anvil", simnet.DefaultChainID)
	require.NoError(t, err)
	require.Len(t, record.Upgrades, 1)
	assert.Equal(t, models.UpgradeVerificationFailed, record.Upgrades[0].State)
}

func TestUpgradeBeacon_TransactionFailure(t *testing.T) {
	f := newFixture(t)
	stranger := common.HexToAddress("0x2222222222222222222222222222222222222222")
	setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl, UpgradeManager: stranger})

	result, err := f.upgrader().Run(context.Background(), upgradeParams())
	require.Error(t, err)

	var txErr *domain.TransactionFailureError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, domain.PhaseUpgrade, txErr.Phase)
	assert.ErrorIs(t, err, domain.ErrTransactionReverted)
	require.NotNil(t, txErr.Record)

	// The implementation stays recorded so a retry reuses it.
	_, ok := txErr.Record.Unit("DeviceWalletV2")
	assert.True(t, ok)
	assert.Equal(t, models.UpgradeImplementationDeployed, result.State)
}

func TestUpgradeBeacon_Validation(t *testing.T) {
	f := newFixture(t)
	setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl})

	tests := []struct {
		name   string
		params usecase.UpgradeParams
		is     error
	}{
		{
			name:   "no implementation",
			params: usecase.UpgradeParams{},
			is:     domain.ErrInvalidUnit,
		},
		{
			name: "proxy implementation",
			params: usecase.UpgradeParams{
				Implementation: &models.Unit{Name: "X", Kind: models.KindUUPSProxy, Artifact: "DeviceWalletV2"},
			},
			is: domain.ErrInvalidUnit,
		},
		{
			name: "unknown target",
			params: usecase.UpgradeParams{
				Target:         "DeviceWalletFactor",
				Implementation: &models.Unit{Name: "DeviceWalletV2", Artifact: "DeviceWalletV2"},
			},
			is: domain.ErrUnknownUnit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.upgrader().Run(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	t.Run("upgrade function must take one argument", func(t *testing.T) {
		p := upgradeParams()
		p.UpgradeFunction = "upgrade(address,bytes)"
		_, err := f.upgrader().Run(context.Background(), p)
		assert.Error(t, err)
	})

	t.Run("missing upgrade manager", func(t *testing.T) {
		delete(f.signers.Addresses, models.RoleUpgradeManager)
		_, err := f.upgrader().Run(context.Background(), upgradeParams())
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
	})

	assert.Empty(t, f.net.Submissions())
}

func TestUpgradeBeacon_UnknownTargetSuggests(t *testing.T) {
	f := newFixture(t)
	setupFactory(t, f, &simnet.WalletFactory{Implementation: oldImpl})

	p := upgradeParams()
	p.Target = "devicewalletfactory"
	_, err := f.upgrader().Run(context.Background(), p)

	var nf *domain.UnitNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Suggestions, "DeviceWalletFactory")
}
