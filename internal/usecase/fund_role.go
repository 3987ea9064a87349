package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// FundRoleParams contains parameters for topping up a role on a devnet
type FundRoleParams struct {
	Roles  []models.Role
	Amount *big.Int
}

// FundedRole is the outcome for one role
type FundedRole struct {
	Role    models.Role
	Address common.Address
	Before  *big.Int
	After   *big.Int
}

// FundRole sets role balances on test networks.
type FundRole struct {
	cfg     *config.RuntimeConfig
	network Network
	signers SignerSet
	log     *slog.Logger
}

// NewFundRole creates a new FundRole use case
func NewFundRole(cfg *config.RuntimeConfig, network Network, signers SignerSet, log *slog.Logger) *FundRole {
	return &FundRole{cfg: cfg, network: network, signers: signers, log: log}
}

// Run overrides the balance of each role. Live networks are refused.
func (uc *FundRole) Run(ctx context.Context, params FundRoleParams) ([]FundedRole, error) {
	if uc.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}
	if !uc.cfg.Network.Devnet {
		return nil, fmt.Errorf("%w: %s is not marked as a devnet", domain.ErrNotDevnet, uc.cfg.Network.Name)
	}
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("fund amount must be positive")
	}

	roles := params.Roles
	if len(roles) == 0 {
		roles = uc.signers.Roles()
	}

	out := make([]FundedRole, 0, len(roles))
	for _, role := range roles {
		addr, err := uc.signers.Address(role)
		if err != nil {
			return out, fmt.Errorf("role %s: %w", role, err)
		}
		before, err := uc.network.Balance(ctx, addr)
		if err != nil {
			return out, fmt.Errorf("balance of %s: %w", role, err)
		}
		if err := uc.network.SetBalance(ctx, addr, params.Amount); err != nil {
			return out, fmt.Errorf("fund %s: %w", role, err)
		}
		after, err := uc.network.Balance(ctx, addr)
		if err != nil {
			return out, fmt.Errorf("balance of %s: %w", role, err)
		}
		uc.log.Info("role funded", "role", role, "address", addr.Hex(), "before", before.String(), "after", after.String())
		out = append(out, FundedRole{Role: role, Address: addr, Before: before, After: after})
	}
	return out, nil
}
