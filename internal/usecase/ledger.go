package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// ledger guards the in-memory deployment record while concurrent unit
// deployments read addresses and append entries.
type ledger struct {
	mu      sync.Mutex
	record  *models.DeploymentRecord
	store   RecordStore
	signers SignerSet
}

func newLedger(record *models.DeploymentRecord, store RecordStore, signers SignerSet) *ledger {
	return &ledger{record: record, store: store, signers: signers}
}

func (l *ledger) append(ctx context.Context, entry models.RecordEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Append(ctx, l.record, l.record.Next(entry))
}

func (l *ledger) snapshot() *models.DeploymentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record.Clone()
}

func (l *ledger) unit(name string) (*models.UnitRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.record.Unit(name)
	if !ok {
		return nil, false
	}
	c := *u
	return &c, true
}

func (l *ledger) wiring(index int) (*models.WiringRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record.WiringStep(index)
}

// resolve turns plan arguments into values the codec accepts.
func (l *ledger) resolve(args []models.Arg) ([]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	values := make([]any, len(args))
	for i, a := range args {
		v, err := resolveArg(l.record, l.signers, a)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, a, err)
		}
		values[i] = v
	}
	return values, nil
}

func (l *ledger) resolveOne(a models.Arg) (common.Address, error) {
	values, err := l.resolve([]models.Arg{a})
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s is not an address", a)
	}
	return addr, nil
}

func resolveArg(record *models.DeploymentRecord, signers SignerSet, a models.Arg) (any, error) {
	switch a.Source {
	case models.ArgUnitRef:
		name := a.Unit
		if a.Field == "implementation" {
			name = a.Unit + "Implementation"
		}
		addr, ok := record.Address(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s has not been deployed", domain.ErrUnknownUnit, name)
		}
		return addr, nil
	case models.ArgRoleRef:
		return signers.Address(a.Role)
	default:
		return a.Value, nil
	}
}

// ResolveAddress interprets s as a hex address, an @role reference or the
// name of a recorded unit.
func ResolveAddress(record *models.DeploymentRecord, signers SignerSet, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	switch {
	case common.IsHexAddress(s):
		return common.HexToAddress(s), nil
	case strings.HasPrefix(s, "@"):
		role, err := models.ParseRole(s[1:])
		if err != nil {
			return common.Address{}, err
		}
		return signers.Address(role)
	}
	if record != nil {
		if addr, ok := record.Address(s); ok {
			return addr, nil
		}
		return common.Address{}, &domain.UnitNotFoundError{Name: s, Network: record.Network, Suggestions: suggestUnits(record, s)}
	}
	return common.Address{}, fmt.Errorf("%w: %s", domain.ErrUnknownUnit, s)
}
