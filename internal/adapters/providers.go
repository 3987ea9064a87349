package adapters

import (
	"log/slog"

	"github.com/google/wire"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/anvil"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/blockchain"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/fs"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/interactive"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/network"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/signer"
	"github.com/trebuchet-org/wallet-deployer/internal/adapters/simnet"
	"github.com/trebuchet-org/wallet-deployer/internal/config"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// ProvideSimulatedNetwork provides the in-memory chain used by --dry-run.
// It is built for every run and only selected when DryRun is set.
func ProvideSimulatedNetwork(cfg *config.RuntimeConfig, keys *signer.Keyring) *simnet.Network {
	var chainID uint64
	if cfg.Network != nil {
		chainID = cfg.Network.ChainID
	}
	return simnet.New(chainID, keys)
}

// ProvideNetwork selects the simulated chain for dry runs and the RPC
// adapter otherwise. The cleanup closes the RPC connection.
func ProvideNetwork(cfg *config.RuntimeConfig, sim *simnet.Network, keys *signer.Keyring, log *slog.Logger) (usecase.Network, func()) {
	if cfg.DryRun {
		return sim, func() {}
	}
	rpc := network.NewRPCNetwork(cfg, keys, log)
	return rpc, func() {
		if err := rpc.Close(); err != nil {
			log.Debug("failed to close rpc connection", "error", err)
		}
	}
}

// ProvideRecordStore keeps dry runs away from the on-disk record.
func ProvideRecordStore(cfg *config.RuntimeConfig) usecase.RecordStore {
	if cfg.DryRun {
		return simnet.NewRecords()
	}
	return fs.NewRecordStoreAdapter(cfg)
}

// ProvideBlockchainChecker answers code checks from the same chain the
// run submits to.
func ProvideBlockchainChecker(cfg *config.RuntimeConfig, sim *simnet.Network) usecase.BlockchainChecker {
	if cfg.DryRun {
		return &simnet.Checker{Net: sim}
	}
	return blockchain.NewCheckerAdapter()
}

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	ProvideRecordStore,

	fs.NewPlanLoaderAdapter,
	wire.Bind(new(usecase.PlanLoader), new(*fs.PlanLoaderAdapter)),

	fs.NewArtifactStoreAdapter,
	wire.Bind(new(usecase.ArtifactStore), new(*fs.ArtifactStoreAdapter)),

	fs.NewLocalConfigStoreAdapter,
	wire.Bind(new(usecase.LocalConfigStore), new(*fs.LocalConfigStoreAdapter)),
)

// SignerSet provides role key material
var SignerSet = wire.NewSet(
	signer.NewKeyring,
	wire.Bind(new(usecase.SignerSet), new(*signer.Keyring)),
)

// NetworkSet provides the chain the run talks to
var NetworkSet = wire.NewSet(
	ProvideSimulatedNetwork,
	ProvideNetwork,
	ProvideBlockchainChecker,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.UnitSelector), new(*interactive.SelectorAdapter)),

	interactive.NewConfirmerAdapter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.ConfirmerAdapter)),
)

// DevnetSet provides the local node manager
var DevnetSet = wire.NewSet(
	anvil.NewManager,
	wire.Bind(new(usecase.DevnetManager), new(*anvil.Manager)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	SignerSet,
	NetworkSet,
	InteractiveSet,
	DevnetSet,
)
