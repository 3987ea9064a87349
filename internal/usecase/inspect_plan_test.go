package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

func TestInspectPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("levels and roles", func(t *testing.T) {
		f := newFixture(t)
		loader := &MockPlanLoader{}
		loader.On("LoadPlan", mock.Anything, "plans/chain.yaml").Return(chainPlan(t), nil)
		uc := usecase.NewInspectPlan(f.cfg, loader, f.artifacts, f.signers, f.net, f.records)

		out, err := uc.Run(ctx, usecase.InspectPlanParams{Path: "plans/chain.yaml", CheckArtifacts: true})
		require.NoError(t, err)
		require.Len(t, out.Levels, 3)
		assert.Len(t, out.Levels[0], 2)
		assert.Equal(t, []models.Role{models.RoleDeployer, models.RoleAdmin}, out.SigningRoles)
		assert.Empty(t, out.MissingArtifacts)
		assert.NoError(t, out.Valid())
		loader.AssertExpectations(t)
	})

	t.Run("missing artifacts and signers", func(t *testing.T) {
		f := newFixture(t)
		delete(f.artifacts, "ERC1967Proxy")
		delete(f.signers.Addresses, models.RoleAdmin)

		p := domain.NewPlan("proxy", models.ProtocolV2)
		mustAddUnit(t, p, &models.Unit{Name: "Registry", Kind: models.KindUUPSProxy, Artifact: "Registry", Role: models.RoleAdmin})

		loader := &MockPlanLoader{}
		loader.On("LoadPlan", mock.Anything, mock.Anything).Return(p, nil)
		uc := usecase.NewInspectPlan(f.cfg, loader, f.artifacts, f.signers, f.net, f.records)

		out, err := uc.Run(ctx, usecase.InspectPlanParams{Path: "p.yaml", CheckArtifacts: true})
		require.NoError(t, err)
		assert.Contains(t, out.MissingArtifacts, "ERC1967Proxy")
		assert.Equal(t, []models.Role{models.RoleAdmin}, out.MissingSigners)

		err = out.Valid()
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
		assert.ErrorIs(t, err, domain.ErrMissingSigner)
	})

	t.Run("pending work against the record", func(t *testing.T) {
		f := newFixture(t)
		f.record(t, models.UnitRecord{Name: "A"})
		f.record(t, models.UnitRecord{Name: "B"})

		loader := &MockPlanLoader{}
		loader.On("LoadPlan", mock.Anything, mock.Anything).Return(chainPlan(t), nil)
		uc := usecase.NewInspectPlan(f.cfg, loader, f.artifacts, f.signers, f.net, f.records)

		out, err := uc.Run(ctx, usecase.InspectPlanParams{Path: "p.yaml", WithRecord: true})
		require.NoError(t, err)
		require.NotNil(t, out.Record)
		assert.Equal(t, []string{"C", "D"}, out.PendingUnits)
	})

	t.Run("loader errors pass through", func(t *testing.T) {
		f := newFixture(t)
		loader := &MockPlanLoader{}
		loader.On("LoadPlan", mock.Anything, mock.Anything).Return(nil, domain.ErrDuplicateUnit)
		uc := usecase.NewInspectPlan(f.cfg, loader, f.artifacts, f.signers, f.net, f.records)

		_, err := uc.Run(ctx, usecase.InspectPlanParams{Path: "p.yaml"})
		assert.ErrorIs(t, err, domain.ErrDuplicateUnit)
	})
}
