package app

import (
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig

	// Shared dependencies
	Confirmer usecase.Confirmer
	Progress  usecase.ProgressSink

	// Use cases
	DeployPlan    *usecase.DeployPlan
	InspectPlan   *usecase.InspectPlan
	DeriveAddress *usecase.DeriveAddress
	UpgradeBeacon *usecase.UpgradeBeacon
	ShowRecord    *usecase.ShowRecord
	FundRole      *usecase.FundRole
	ListNetworks  *usecase.ListNetworks
	ShowConfig    *usecase.ShowConfig
	SetConfig     *usecase.SetConfig
	RemoveConfig  *usecase.RemoveConfig
	ManageDevnet  *usecase.ManageDevnet
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	confirmer usecase.Confirmer,
	progress usecase.ProgressSink,
	deployPlan *usecase.DeployPlan,
	inspectPlan *usecase.InspectPlan,
	deriveAddress *usecase.DeriveAddress,
	upgradeBeacon *usecase.UpgradeBeacon,
	showRecord *usecase.ShowRecord,
	fundRole *usecase.FundRole,
	listNetworks *usecase.ListNetworks,
	showConfig *usecase.ShowConfig,
	setConfig *usecase.SetConfig,
	removeConfig *usecase.RemoveConfig,
	manageDevnet *usecase.ManageDevnet,
) *App {
	return &App{
		Config:        cfg,
		Confirmer:     confirmer,
		Progress:      progress,
		DeployPlan:    deployPlan,
		InspectPlan:   inspectPlan,
		DeriveAddress: deriveAddress,
		UpgradeBeacon: upgradeBeacon,
		ShowRecord:    showRecord,
		FundRole:      fundRole,
		ListNetworks:  listNetworks,
		ShowConfig:    showConfig,
		SetConfig:     setConfig,
		RemoveConfig:  removeConfig,
		ManageDevnet:  manageDevnet,
	}
}
