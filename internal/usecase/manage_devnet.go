package usecase

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
)

// DevnetOperation names a devnet action
type DevnetOperation string

const (
	DevnetStart    DevnetOperation = "start"
	DevnetStop     DevnetOperation = "stop"
	DevnetRestart  DevnetOperation = "restart"
	DevnetStatus   DevnetOperation = "status"
	DevnetLogs     DevnetOperation = "logs"
	DevnetSnapshot DevnetOperation = "snapshot"
	DevnetRevert   DevnetOperation = "revert"
)

// ManageDevnetParams contains parameters for devnet operations
type ManageDevnetParams struct {
	Operation DevnetOperation
	// ForkURL starts the node as a fork of another network.
	ForkURL string
	// SnapshotID is required for revert.
	SnapshotID string
	// Output receives the node log for logs.
	Output io.Writer
}

// ManageDevnetResult contains the result of devnet operations
type ManageDevnetResult struct {
	Operation  DevnetOperation
	Instance   *domain.DevnetInstance
	Status     *domain.DevnetStatus
	SnapshotID string
	Message    string
}

// ManageDevnet runs the local node behind a devnet network.
type ManageDevnet struct {
	cfg      *config.RuntimeConfig
	manager  DevnetManager
	progress ProgressSink
}

// NewManageDevnet creates a new devnet management use case
func NewManageDevnet(cfg *config.RuntimeConfig, manager DevnetManager, progress ProgressSink) *ManageDevnet {
	return &ManageDevnet{cfg: cfg, manager: manager, progress: progress}
}

// Run performs the devnet operation on the selected network, or on the
// first devnet in the project when no network is selected.
func (m *ManageDevnet) Run(ctx context.Context, params ManageDevnetParams) (*ManageDevnetResult, error) {
	instance, err := m.instance(params)
	if err != nil {
		return nil, err
	}
	result := &ManageDevnetResult{Operation: params.Operation, Instance: instance}

	switch params.Operation {
	case DevnetStart:
		if status, err := m.manager.GetStatus(ctx, instance); err == nil && status.Running {
			return nil, fmt.Errorf("devnet %s is already running (PID %d)", instance.Name, status.PID)
		}
		m.progress.Info(fmt.Sprintf("Starting devnet %s on port %s...", instance.Name, instance.Port))
		if err := m.manager.Start(ctx, instance); err != nil {
			return nil, fmt.Errorf("failed to start devnet: %w", err)
		}
	case DevnetStop:
		status, err := m.manager.GetStatus(ctx, instance)
		if err != nil || !status.Running {
			result.Message = fmt.Sprintf("devnet %s is not running", instance.Name)
			return result, nil
		}
		if err := m.manager.Stop(ctx, instance); err != nil {
			return nil, fmt.Errorf("failed to stop devnet: %w", err)
		}
		result.Message = fmt.Sprintf("devnet %s stopped", instance.Name)
		return result, nil
	case DevnetRestart:
		if status, err := m.manager.GetStatus(ctx, instance); err == nil && status.Running {
			if err := m.manager.Stop(ctx, instance); err != nil {
				return nil, fmt.Errorf("failed to stop devnet: %w", err)
			}
		}
		if err := m.manager.Start(ctx, instance); err != nil {
			return nil, fmt.Errorf("failed to start devnet: %w", err)
		}
	case DevnetStatus:
	case DevnetLogs:
		if params.Output == nil {
			return nil, fmt.Errorf("logs needs an output")
		}
		if err := m.manager.StreamLogs(ctx, instance, params.Output); err != nil {
			return nil, err
		}
	case DevnetSnapshot:
		if result.SnapshotID, err = m.manager.TakeSnapshot(ctx, instance); err != nil {
			return nil, err
		}
		result.Message = fmt.Sprintf("snapshot %s taken", result.SnapshotID)
	case DevnetRevert:
		if params.SnapshotID == "" {
			return nil, fmt.Errorf("revert needs a snapshot id")
		}
		if err := m.manager.RevertSnapshot(ctx, instance, params.SnapshotID); err != nil {
			return nil, err
		}
		result.SnapshotID = params.SnapshotID
		result.Message = fmt.Sprintf("reverted to snapshot %s", params.SnapshotID)
	default:
		return nil, fmt.Errorf("unknown operation: %s", params.Operation)
	}

	status, err := m.manager.GetStatus(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	result.Status = status
	if result.Message == "" && status.Running {
		result.Message = fmt.Sprintf("devnet %s running with PID %d", instance.Name, status.PID)
	}
	return result, nil
}

func (m *ManageDevnet) instance(params ManageDevnetParams) (*domain.DevnetInstance, error) {
	network := m.cfg.Network
	if network == nil {
		for i := range m.cfg.KnownNetworks {
			if m.cfg.KnownNetworks[i].Devnet {
				network = &m.cfg.KnownNetworks[i]
				break
			}
		}
	}
	if network == nil {
		return nil, fmt.Errorf("%w: no devnet network configured", domain.ErrNoNetwork)
	}
	if !network.Devnet {
		return nil, fmt.Errorf("%w: %s is not marked as a devnet", domain.ErrNotDevnet, network.Name)
	}

	port := "8545"
	if network.RPCURL != "" {
		u, err := url.Parse(network.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("invalid rpc_url for %s: %w", network.Name, err)
		}
		if p := u.Port(); p != "" {
			port = p
		}
	}

	dir := filepath.Join(m.cfg.DataDir, "devnet")
	return &domain.DevnetInstance{
		Name:    network.Name,
		Port:    port,
		ChainID: network.ChainID,
		ForkURL: params.ForkURL,
		PidFile: filepath.Join(dir, network.Name+".pid"),
		LogFile: filepath.Join(dir, network.Name+".log"),
	}, nil
}
