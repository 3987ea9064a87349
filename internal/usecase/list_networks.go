package usecase

import (
	"context"
	"fmt"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
)

// ListNetworksParams contains parameters for listing networks
type ListNetworksParams struct {
	// Check dials every network with an RPC URL and confirms its chain ID.
	Check bool
}

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkStatus
}

// NetworkStatus represents the status of a network
type NetworkStatus struct {
	Name     string
	ChainID  uint64
	RPCURL   string
	Devnet   bool
	Selected bool
	// Checked is set when the network was dialled; Error holds the failure.
	Checked bool
	Error   error
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	cfg     *config.RuntimeConfig
	checker BlockchainChecker
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(cfg *config.RuntimeConfig, checker BlockchainChecker) *ListNetworks {
	return &ListNetworks{
		cfg:     cfg,
		checker: checker,
	}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context, params ListNetworksParams) (*ListNetworksResult, error) {
	networks := make([]NetworkStatus, 0, len(uc.cfg.KnownNetworks))
	for _, n := range uc.cfg.KnownNetworks {
		status := NetworkStatus{
			Name:     n.Name,
			ChainID:  n.ChainID,
			RPCURL:   n.RPCURL,
			Devnet:   n.Devnet,
			Selected: uc.cfg.Network != nil && uc.cfg.Network.Name == n.Name,
		}
		if status.Selected {
			// --rpc-url may override the configured endpoint
			status.RPCURL = uc.cfg.Network.RPCURL
		}

		if params.Check {
			status.Checked = true
			if status.RPCURL == "" {
				status.Error = fmt.Errorf("no rpc_url configured")
			} else if err := uc.checker.Connect(ctx, status.RPCURL, status.ChainID); err != nil {
				status.Error = err
			}
		}

		networks = append(networks, status)
	}

	return &ListNetworksResult{
		Networks: networks,
	}, nil
}
