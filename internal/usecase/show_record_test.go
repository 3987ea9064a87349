package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// MockUnitSelector is a mock implementation of UnitSelector
type MockUnitSelector struct {
	mock.Mock
}

func (m *MockUnitSelector) SelectUnit(ctx context.Context, units []*models.UnitRecord, prompt string) (*models.UnitRecord, error) {
	args := m.Called(ctx, units, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UnitRecord), args.Error(1)
}

func seededFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.record(t, models.UnitRecord{Name: "DeviceWalletFactory", Kind: models.KindUUPSProxy, Address: common.HexToAddress("0x01")})
	f.record(t, models.UnitRecord{Name: "DeviceWalletFactoryImplementation", Kind: models.KindContract, Parent: "DeviceWalletFactory", Address: common.HexToAddress("0x02")})
	f.record(t, models.UnitRecord{Name: "Registry", Kind: models.KindUUPSProxy, Address: common.HexToAddress("0x03")})
	f.record(t, models.UnitRecord{Name: "ESIMWalletFactory", Kind: models.KindUUPSProxy, Address: common.HexToAddress("0x04")})
	return f
}

func TestShowRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("whole record", func(t *testing.T) {
		f := seededFixture(t)
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, nil, f.progress)

		result, err := uc.Run(ctx, usecase.ShowRecordParams{})
		require.NoError(t, err)
		assert.Len(t, result.Record.Units, 4)
		assert.Nil(t, result.Unit)
	})

	t.Run("unit with implementation", func(t *testing.T) {
		f := seededFixture(t)
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, nil, f.progress)

		result, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "DeviceWalletFactory"})
		require.NoError(t, err)
		assert.Equal(t, "DeviceWalletFactory", result.Unit.Name)
		require.NotNil(t, result.Implementation)
		assert.Equal(t, "DeviceWalletFactoryImplementation", result.Implementation.Name)
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		f := seededFixture(t)
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, nil, f.progress)

		result, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "registry"})
		require.NoError(t, err)
		assert.Equal(t, "Registry", result.Unit.Name)
	})

	t.Run("unknown unit in non-interactive mode suggests names", func(t *testing.T) {
		f := seededFixture(t)
		f.cfg.NonInteractive = true
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, &MockUnitSelector{}, f.progress)

		_, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "WalletFactory"})
		var nf *domain.UnitNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.ErrorIs(t, err, domain.ErrUnknownUnit)
		assert.Equal(t, "anvil", nf.Network)
		assert.Contains(t, nf.Suggestions, "DeviceWalletFactory")
		assert.LessOrEqual(t, len(nf.Suggestions), 3)
	})

	t.Run("unknown unit offers a selection", func(t *testing.T) {
		f := seededFixture(t)
		selector := &MockUnitSelector{}
		selected := &models.UnitRecord{Name: "ESIMWalletFactory"}
		selector.On("SelectUnit", mock.Anything, mock.Anything, mock.Anything).Return(selected, nil)
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, selector, f.progress)

		result, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "ESIMFactory"})
		require.NoError(t, err)
		assert.Equal(t, selected, result.Unit)
		selector.AssertExpectations(t)
	})

	t.Run("cancelled selection reports not found", func(t *testing.T) {
		f := seededFixture(t)
		selector := &MockUnitSelector{}
		selector.On("SelectUnit", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("cancelled"))
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, selector, f.progress)

		_, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "ESIMFactory"})
		assert.ErrorIs(t, err, domain.ErrUnknownUnit)
	})

	t.Run("pick selects from every recorded unit", func(t *testing.T) {
		f := seededFixture(t)
		selector := &MockUnitSelector{}
		selector.On("SelectUnit", mock.Anything, mock.MatchedBy(func(units []*models.UnitRecord) bool {
			return len(units) == 4
		}), "Select a unit").Return(&models.UnitRecord{Name: "Registry"}, nil)
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, selector, f.progress)

		result, err := uc.Run(ctx, usecase.ShowRecordParams{Pick: true})
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x03"), result.Unit.Address)
		selector.AssertExpectations(t)
	})

	t.Run("pick without a terminal", func(t *testing.T) {
		f := seededFixture(t)
		f.cfg.NonInteractive = true
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, &MockUnitSelector{}, f.progress)

		_, err := uc.Run(ctx, usecase.ShowRecordParams{Pick: true})
		assert.Error(t, err)
	})

	t.Run("no suggestions for unrelated names", func(t *testing.T) {
		f := seededFixture(t)
		f.cfg.NonInteractive = true
		uc := usecase.NewShowRecord(f.cfg, f.net, f.records, nil, f.progress)

		_, err := uc.Run(ctx, usecase.ShowRecordParams{Unit: "zzz"})
		var nf *domain.UnitNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Empty(t, nf.Suggestions)
	})
}

func TestResolveAddress(t *testing.T) {
	f := seededFixture(t)
	record, err := f.records.Load(context.Background(), "anvil", f.cfg.Network.ChainID)
	require.NoError(t, err)

	addr, err := usecase.ResolveAddress(record, f.signers, "Registry")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x03"), addr)

	addr, err = usecase.ResolveAddress(record, f.signers, "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)

	admin, _ := f.signers.Address(models.RoleAdmin)
	addr, err = usecase.ResolveAddress(record, f.signers, "@admin")
	require.NoError(t, err)
	assert.Equal(t, admin, addr)

	_, err = usecase.ResolveAddress(record, f.signers, "@nobody")
	assert.Error(t, err)

	_, err = usecase.ResolveAddress(nil, f.signers, "Registry")
	assert.ErrorIs(t, err, domain.ErrUnknownUnit)
}
