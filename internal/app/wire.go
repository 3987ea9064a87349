//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters"
	"github.com/trebuchet-org/wallet-deployer/internal/config"
	"github.com/trebuchet-org/wallet-deployer/internal/logging"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, func(), error) {
	wire.Build(
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewDeployPlan,
		usecase.NewInspectPlan,
		usecase.NewDeriveAddress,
		usecase.NewUpgradeBeacon,
		usecase.NewShowRecord,
		usecase.NewFundRole,
		usecase.NewListNetworks,
		usecase.NewShowConfig,
		usecase.NewSetConfig,
		usecase.NewRemoveConfig,
		usecase.NewManageDevnet,

		// App
		NewApp,
	)
	return nil, nil, nil
}
