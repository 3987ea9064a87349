package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
)

// wellKnownNetworks are usable without a [networks] entry. Live networks
// still need an rpc_url from the project file or WDEPLOY_RPC_URL.
var wellKnownNetworks = []config.Network{
	{ChainID: 31337, Name: "anvil", RPCURL: "http://localhost:8545", Devnet: true},
	{ChainID: 31337, Name: "localhost", RPCURL: "http://localhost:8545", Devnet: true},
	{ChainID: 1, Name: "mainnet"},
	{ChainID: 11155111, Name: "sepolia"},
	{ChainID: 10, Name: "optimism"},
	{ChainID: 42161, Name: "arbitrum"},
	{ChainID: 137, Name: "polygon"},
	{ChainID: 8453, Name: "base"},
	{ChainID: 84532, Name: "base-sepolia"},
	{ChainID: 42220, Name: "celo"},
}

// NetworkResolver resolves network names against the project file and the
// well-known defaults.
type NetworkResolver struct {
	networks map[string]config.Network
}

// NewNetworkResolver creates a resolver. Project file entries override
// well-known networks of the same name field by field.
func NewNetworkResolver(project *config.ProjectFile) *NetworkResolver {
	r := &NetworkResolver{networks: make(map[string]config.Network)}
	for _, n := range wellKnownNetworks {
		r.networks[n.Name] = n
	}
	if project == nil {
		return r
	}

	for name, file := range project.Networks {
		key := strings.ToLower(name)
		n, ok := r.networks[key]
		if !ok {
			n = config.Network{Name: key}
		}
		if file.RPCURL != "" {
			n.RPCURL = file.RPCURL
		}
		if file.ChainID != 0 {
			n.ChainID = file.ChainID
		}
		if file.Devnet {
			n.Devnet = true
		}
		r.networks[key] = n
	}
	return r
}

// Resolve looks a network up by name (case-insensitive) or chain ID.
func (r *NetworkResolver) Resolve(input string) (*config.Network, error) {
	if input == "" {
		return nil, fmt.Errorf("network not specified")
	}

	if n, ok := r.networks[strings.ToLower(input)]; ok {
		return &n, nil
	}

	if chainID, err := strconv.ParseUint(input, 10, 64); err == nil {
		for _, name := range r.Names() {
			if n := r.networks[name]; n.ChainID == chainID {
				return &n, nil
			}
		}
		return nil, fmt.Errorf("no network configured for chain ID %d", chainID)
	}

	return nil, fmt.Errorf("unknown network %q (known: %s)", input, strings.Join(r.Names(), ", "))
}

// Names returns the known network names in sorted order.
func (r *NetworkResolver) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
