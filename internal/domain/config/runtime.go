package config

import (
	"math/big"
	"time"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified
	// KnownNetworks lists every resolvable network in name order.
	KnownNetworks []Network

	// Execution settings
	Debug          bool
	NonInteractive bool
	Timeout        time.Duration
	DryRun         bool

	// Deployment settings
	Concurrency     int
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
	SaltStrategy    string
	ProtocolVersion models.ProtocolVersion

	// Role key material, already env-expanded. A value is either a private
	// key or, for roles that never sign, a plain address.
	Roles map[models.Role]string

	Artifacts   ArtifactsConfig
	Gas         GasConfig
	AddressBook string

	ConfigSource string
}

// Network represents network configuration
type Network struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chainId"`
	RPCURL  string `json:"rpcUrl"`
	// Devnet enables test-network-only operations such as balance overrides.
	Devnet bool `json:"devnet"`
}

// ArtifactsConfig locates compiled contracts.
type ArtifactsConfig struct {
	Dirs        []string
	BeaconProxy string
}

// GasConfig holds optional EIP-1559 fee overrides; nil means estimate.
type GasConfig struct {
	FeeCap *big.Int
	TipCap *big.Int
}
