package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// InspectPlanParams contains parameters for inspecting a plan
type InspectPlanParams struct {
	Path string
	// CheckArtifacts loads every artifact the plan names.
	CheckArtifacts bool
	// WithRecord compares the plan against the selected network's record.
	WithRecord bool
}

// PlanInspection describes a loaded plan
type PlanInspection struct {
	Plan            *domain.Plan
	Levels          [][]*models.Unit
	SigningRoles    []models.Role
	ReferencedRoles []models.Role
	// MissingArtifacts maps artifact name to the load error.
	MissingArtifacts map[string]string
	// Record is nil unless WithRecord was set and a network is selected.
	Record         *models.DeploymentRecord
	PendingUnits   []string
	PendingWiring  []int
	MissingSigners []models.Role
}

// InspectPlan is the use case behind plan show and plan validate
type InspectPlan struct {
	cfg       *config.RuntimeConfig
	loader    PlanLoader
	artifacts ArtifactStore
	signers   SignerSet
	network   Network
	records   RecordStore
}

// NewInspectPlan creates a new InspectPlan use case
func NewInspectPlan(
	cfg *config.RuntimeConfig,
	loader PlanLoader,
	artifacts ArtifactStore,
	signers SignerSet,
	network Network,
	records RecordStore,
) *InspectPlan {
	return &InspectPlan{
		cfg:       cfg,
		loader:    loader,
		artifacts: artifacts,
		signers:   signers,
		network:   network,
		records:   records,
	}
}

// Run loads and inspects the plan at params.Path. Plan shape errors come
// from the loader; missing artifacts and signers are reported in the
// inspection rather than as errors.
func (uc *InspectPlan) Run(ctx context.Context, params InspectPlanParams) (*PlanInspection, error) {
	plan, err := uc.loader.LoadPlan(ctx, params.Path)
	if err != nil {
		return nil, err
	}

	out := &PlanInspection{
		Plan:             plan,
		Levels:           plan.Levels(),
		SigningRoles:     plan.SigningRoles(),
		ReferencedRoles:  plan.ReferencedRoles(),
		MissingArtifacts: make(map[string]string),
	}

	if uc.signers != nil {
		out.MissingSigners = lo.Filter(out.SigningRoles, func(r models.Role, _ int) bool {
			return !uc.signers.CanSign(r)
		})
	}

	if params.CheckArtifacts {
		for _, name := range planArtifacts(plan) {
			art, err := uc.artifacts.Load(ctx, name)
			switch {
			case err != nil:
				out.MissingArtifacts[name] = err.Error()
			case len(art.Bytecode) == 0:
				out.MissingArtifacts[name] = "no creation bytecode"
			}
		}
	}

	if params.WithRecord && uc.cfg.Network != nil {
		chainID := uc.cfg.Network.ChainID
		if chainID == 0 {
			if chainID, err = uc.network.ChainID(ctx); err != nil {
				return nil, fmt.Errorf("failed to get chain ID: %w", err)
			}
		}
		record, err := uc.records.Load(ctx, uc.cfg.Network.Name, chainID)
		if err != nil {
			return nil, fmt.Errorf("failed to load deployment record: %w", err)
		}
		out.Record = record
		for _, u := range plan.Units {
			if _, ok := record.Unit(u.Name); !ok {
				out.PendingUnits = append(out.PendingUnits, u.Name)
			}
		}
		for _, step := range plan.Wiring {
			if _, ok := record.WiringStep(step.Index); !ok {
				out.PendingWiring = append(out.PendingWiring, step.Index)
			}
		}
	}

	return out, nil
}

// Valid reports whether the plan can be deployed as inspected.
func (p *PlanInspection) Valid() error {
	var errs []error
	for name, reason := range p.MissingArtifacts {
		errs = append(errs, fmt.Errorf("%w: %s (%s)", domain.ErrArtifactNotFound, name, reason))
	}
	if len(p.MissingSigners) > 0 {
		errs = append(errs, &domain.MissingSignersError{Roles: p.MissingSigners})
	}
	return errors.Join(errs...)
}

// planArtifacts lists every artifact the plan deploys, wrappers included.
func planArtifacts(plan *domain.Plan) []string {
	var names []string
	for _, u := range plan.Units {
		if u.Kind == models.KindExternal {
			continue
		}
		if u.Artifact != "" {
			names = append(names, u.Artifact)
		}
		if u.Kind != models.KindContract {
			names = append(names, u.ProxyArtifactName())
		}
	}
	return lo.Uniq(names)
}
