package simnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// Signers is a fixed role table. Roles listed in WatchOnly resolve to an
// address but cannot sign.
type Signers struct {
	Addresses map[models.Role]common.Address
	WatchOnly map[models.Role]bool
}

// NewSigners gives every role a distinct deterministic address.
func NewSigners(roles ...models.Role) *Signers {
	if len(roles) == 0 {
		roles = models.Roles
	}
	s := &Signers{Addresses: make(map[models.Role]common.Address), WatchOnly: make(map[models.Role]bool)}
	for _, r := range roles {
		s.Addresses[r] = common.BytesToAddress(crypto.Keccak256([]byte("simnet/" + string(r)))[12:])
	}
	return s
}

func (s *Signers) Address(role models.Role) (common.Address, error) {
	addr, ok := s.Addresses[role]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", domain.ErrMissingSigner, role)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", domain.ErrRoleZeroAddress, role)
	}
	return addr, nil
}

func (s *Signers) CanSign(role models.Role) bool {
	addr, ok := s.Addresses[role]
	return ok && addr != (common.Address{}) && !s.WatchOnly[role]
}

func (s *Signers) Roles() []models.Role {
	var out []models.Role
	for _, r := range models.Roles {
		if _, ok := s.Addresses[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Records keeps deployment logs in memory.
type Records struct {
	mu sync.Mutex
	// FailAfter makes Append fail once this many entries are stored; 0 disables.
	FailAfter int
	logs      map[string][]models.RecordEntry
}

// NewRecords creates an empty in-memory record store.
func NewRecords() *Records {
	return &Records{logs: make(map[string][]models.RecordEntry)}
}

func (r *Records) Load(_ context.Context, network string, chainID uint64) (*models.DeploymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record := models.NewDeploymentRecord(network, chainID)
	for _, e := range r.logs[network] {
		if err := record.Apply(e); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (r *Records) Append(_ context.Context, record *models.DeploymentRecord, entry models.RecordEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAfter > 0 && len(r.logs[record.Network]) >= r.FailAfter {
		return fmt.Errorf("record store full")
	}
	if err := record.Clone().Apply(entry); err != nil {
		return err
	}
	r.logs[record.Network] = append(r.logs[record.Network], entry)
	return record.Apply(entry)
}

// Entries returns the stored log for network.
func (r *Records) Entries(network string) []models.RecordEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.RecordEntry(nil), r.logs[network]...)
}

// Artifacts serves creation bytecode by name.
type Artifacts map[string][]byte

func (a Artifacts) Load(_ context.Context, name string) (*models.Artifact, error) {
	code, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	return &models.Artifact{Name: name, Bytecode: append([]byte(nil), code...)}, nil
}

// Checker answers code and transaction checks from the network.
type Checker struct {
	Net *Network
}

func (c *Checker) Connect(context.Context, string, uint64) error {
	return nil
}

func (c *Checker) CheckDeploymentExists(_ context.Context, addr common.Address) (bool, string, error) {
	if _, ok := c.Net.At(addr); !ok {
		return false, "no code at address", nil
	}
	return true, "", nil
}

func (c *Checker) CheckTransactionExists(_ context.Context, hash common.Hash) (bool, uint64, string, error) {
	r, ok := c.Net.receipt(hash)
	if !ok {
		return false, 0, "transaction not found", nil
	}
	if !r.Success {
		return true, r.BlockNumber, "transaction reverted", nil
	}
	return true, r.BlockNumber, "", nil
}
