package anvil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

const (
	DefaultAnvilPort = "8545"
	defaultBinary    = "anvil"
	startTimeout     = 10 * time.Second
	healthInterval   = 200 * time.Millisecond
)

// Manager runs anvil as a detached process tracked by a pid file.
type Manager struct {
	binary string
}

// NewManager creates a new anvil manager
func NewManager() *Manager {
	return &Manager{binary: defaultBinary}
}

var _ usecase.DevnetManager = (*Manager)(nil)

// Start launches anvil and waits until it answers eth_chainId.
func (m *Manager) Start(ctx context.Context, instance *domain.DevnetInstance) error {
	m.setFilePaths(instance)

	if err := os.MkdirAll(filepath.Dir(instance.PidFile), 0o755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(instance.LogFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(instance.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(m.binary, buildAnvilArgs(instance)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", m.binary, err)
	}
	pid := cmd.Process.Pid
	if err := os.WriteFile(instance.PidFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	_ = cmd.Process.Release()

	deadline := time.Now().Add(startTimeout)
	for {
		if _, err := m.chainID(ctx, instance); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("anvil did not answer on %s within %s (see %s)", instance.RPCURL(), startTimeout, instance.LogFile)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthInterval):
		}
	}
}

// Stop terminates the process recorded in the pid file.
func (m *Manager) Stop(ctx context.Context, instance *domain.DevnetInstance) error {
	m.setFilePaths(instance)

	pid, err := readPidFile(instance.PidFile)
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop process %d: %w", pid, err)
	}
	return os.Remove(instance.PidFile)
}

// GetStatus reports process liveness and RPC health separately, so a node
// started outside wdeploy still shows as healthy.
func (m *Manager) GetStatus(ctx context.Context, instance *domain.DevnetInstance) (*domain.DevnetStatus, error) {
	m.setFilePaths(instance)

	status := &domain.DevnetStatus{
		RPCURL:  instance.RPCURL(),
		LogFile: instance.LogFile,
	}
	if pid, err := readPidFile(instance.PidFile); err == nil && processAlive(pid) {
		status.Running = true
		status.PID = pid
	}

	chainID, err := m.chainID(ctx, instance)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.RPCHealthy = true
	status.ChainID = chainID
	return status, nil
}

// StreamLogs copies the node's log file to w.
func (m *Manager) StreamLogs(ctx context.Context, instance *domain.DevnetInstance, w io.Writer) error {
	m.setFilePaths(instance)

	f, err := os.Open(instance.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// TakeSnapshot calls evm_snapshot and returns the snapshot id.
func (m *Manager) TakeSnapshot(ctx context.Context, instance *domain.DevnetInstance) (string, error) {
	var id string
	if err := m.call(ctx, instance, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("evm_snapshot: %w", err)
	}
	return id, nil
}

// RevertSnapshot calls evm_revert. Anvil answers false for unknown ids.
func (m *Manager) RevertSnapshot(ctx context.Context, instance *domain.DevnetInstance, id string) error {
	var ok bool
	if err := m.call(ctx, instance, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("evm_revert: %w", err)
	}
	if !ok {
		return fmt.Errorf("evm_revert returned false for snapshot %s", id)
	}
	return nil
}

func (m *Manager) chainID(ctx context.Context, instance *domain.DevnetInstance) (uint64, error) {
	var id hexutil.Uint64
	if err := m.call(ctx, instance, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (m *Manager) call(ctx context.Context, instance *domain.DevnetInstance, result any, method string, args ...any) error {
	client, err := rpc.DialContext(ctx, instance.RPCURL())
	if err != nil {
		return err
	}
	defer client.Close()
	return client.CallContext(ctx, result, method, args...)
}

// setFilePaths fills defaults the caller left empty.
func (m *Manager) setFilePaths(instance *domain.DevnetInstance) {
	if strings.TrimSpace(instance.Name) == "" {
		instance.Name = "anvil"
	}
	if strings.TrimSpace(instance.Port) == "" {
		instance.Port = DefaultAnvilPort
	}
	if instance.PidFile == "" {
		instance.PidFile = filepath.Join(os.TempDir(), fmt.Sprintf("wdeploy-%s.pid", instance.Name))
	}
	if instance.LogFile == "" {
		instance.LogFile = filepath.Join(os.TempDir(), fmt.Sprintf("wdeploy-%s.log", instance.Name))
	}
}

func buildAnvilArgs(instance *domain.DevnetInstance) []string {
	args := []string{"--port", instance.Port, "--host", "127.0.0.1"}
	if instance.ChainID != 0 {
		args = append(args, "--chain-id", strconv.FormatUint(instance.ChainID, 10))
	}
	if instance.ForkURL != "" {
		args = append(args, "--fork-url", instance.ForkURL)
	}
	return args
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no pid file at %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", path, err)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
