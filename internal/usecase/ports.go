package usecase

import (
	"context"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// Network submits transactions and reads state. Implementations serialize
// sends per role so nonces never collide.
type Network interface {
	ChainID(ctx context.Context) (uint64, error)
	// SendCreation signs and broadcasts creation.Bytecode ++ creation.Args
	// for role without waiting for it to be mined.
	SendCreation(ctx context.Context, role models.Role, creation models.Creation) (*models.PendingTx, error)
	// SendCall signs and broadcasts call for role.
	SendCall(ctx context.Context, role models.Role, call models.Call) (*models.PendingTx, error)
	// WaitMined blocks until tx is confirmed. A reverted transaction returns
	// the receipt together with domain.ErrTransactionReverted.
	WaitMined(ctx context.Context, tx *models.PendingTx) (*models.Receipt, error)
	// ReadState performs a read-only call against target.
	ReadState(ctx context.Context, target common.Address, data []byte) ([]byte, error)
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	// SetBalance overrides an account balance. Test networks only.
	SetBalance(ctx context.Context, addr common.Address, amount *big.Int) error
}

// SignerSet maps roles to identities.
type SignerSet interface {
	// Address returns the address a role resolves to.
	Address(role models.Role) (common.Address, error)
	// CanSign reports whether the role has key material.
	CanSign(role models.Role) bool
	// Roles returns the configured roles in role order.
	Roles() []models.Role
}

// RecordStore persists deployment records as append-only logs.
type RecordStore interface {
	// Load replays the log for network. A missing log yields an empty record.
	Load(ctx context.Context, network string, chainID uint64) (*models.DeploymentRecord, error)
	// Append persists entry and folds it into record. Entries must be
	// stamped with record.Next.
	Append(ctx context.Context, record *models.DeploymentRecord, entry models.RecordEntry) error
}

// PlanLoader reads deployment plans.
type PlanLoader interface {
	LoadPlan(ctx context.Context, path string) (*domain.Plan, error)
}

// ArtifactStore resolves compiled contracts by name.
type ArtifactStore interface {
	Load(ctx context.Context, name string) (*models.Artifact, error)
}

// BlockchainChecker checks on-chain state of contracts and transactions
type BlockchainChecker interface {
	Connect(ctx context.Context, rpcURL string, chainID uint64) error
	CheckDeploymentExists(ctx context.Context, address common.Address) (exists bool, reason string, err error)
	CheckTransactionExists(ctx context.Context, txHash common.Hash) (exists bool, blockNumber uint64, reason string, err error)
}

// Confirmer asks the operator to approve an action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// UnitSelector handles interactive selection of recorded units
type UnitSelector interface {
	SelectUnit(ctx context.Context, units []*models.UnitRecord, prompt string) (*models.UnitRecord, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// DevnetManager runs local anvil nodes for devnet networks.
type DevnetManager interface {
	Start(ctx context.Context, instance *domain.DevnetInstance) error
	Stop(ctx context.Context, instance *domain.DevnetInstance) error
	GetStatus(ctx context.Context, instance *domain.DevnetInstance) (*domain.DevnetStatus, error)
	StreamLogs(ctx context.Context, instance *domain.DevnetInstance, w io.Writer) error
	TakeSnapshot(ctx context.Context, instance *domain.DevnetInstance) (string, error)
	RevertSnapshot(ctx context.Context, instance *domain.DevnetInstance, id string) error
}
