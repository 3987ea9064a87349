package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

// submitter is the transaction-submission primitive shared by deployments
// and upgrades. Each role's submissions are serialized by its own lock;
// different roles may submit concurrently.
type submitter struct {
	network   Network
	signers   SignerSet
	artifacts ArtifactStore
	log       *slog.Logger
	locks     map[models.Role]*sync.Mutex
}

func newSubmitter(network Network, signers SignerSet, artifacts ArtifactStore, log *slog.Logger) *submitter {
	locks := make(map[models.Role]*sync.Mutex, len(models.Roles))
	for _, r := range models.Roles {
		locks[r] = &sync.Mutex{}
	}
	return &submitter{
		network:   network,
		signers:   signers,
		artifacts: artifacts,
		log:       log,
		locks:     locks,
	}
}

func (s *submitter) lock(role models.Role) func() {
	mu, ok := s.locks[role]
	if !ok {
		mu = &sync.Mutex{}
	}
	mu.Lock()
	return mu.Unlock
}

// sendFunc broadcasts one transaction.
type sendFunc func(ctx context.Context) (*models.PendingTx, error)

// transact sends under role's lock and waits for confirmation. gate is
// checked once the lock is held and stops new sends; ctx bounds the send,
// the wait and sent. sent runs once the hash is known, before the wait, so
// an interrupted wait still leaves the transaction on record.
func (s *submitter) transact(ctx, gate context.Context, phase domain.Phase, role models.Role, label string, send sendFunc, sent func(*models.PendingTx) error) (*models.PendingTx, *models.Receipt, error) {
	unlock := s.lock(role)
	defer unlock()

	if err := gate.Err(); err != nil {
		return nil, nil, err
	}
	tx, err := send(ctx)
	if err != nil {
		return nil, nil, &domain.TransactionFailureError{Phase: phase, Name: label, Err: err}
	}
	if sent != nil {
		if err := sent(tx); err != nil {
			return tx, nil, err
		}
	}

	receipt, err := s.network.WaitMined(ctx, tx)
	if err != nil {
		return tx, receipt, &domain.TransactionFailureError{Phase: phase, Name: label, TxHash: tx.TxHash, Err: err}
	}
	return tx, receipt, nil
}

// create deploys artifact as unit. The unit is recorded as pending once the
// creation is sent, then as deployed, or dropped if it reverts.
func (s *submitter) create(ctx, gate context.Context, l *ledger, phase domain.Phase, unit models.UnitRecord, ctorArgs []byte) (*models.UnitRecord, error) {
	art, err := s.artifacts.Load(ctx, unit.Artifact)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", unit.Name, err)
	}
	if len(art.Bytecode) == 0 {
		return nil, fmt.Errorf("%s: artifact %s has no creation bytecode (abstract contract or interface?)", unit.Name, unit.Artifact)
	}

	s.log.Debug("submitting creation", "unit", unit.Name, "artifact", unit.Artifact, "role", unit.Role)
	send := func(ctx context.Context) (*models.PendingTx, error) {
		return s.network.SendCreation(ctx, unit.Role, models.Creation{
			Label:    unit.Name,
			Bytecode: art.Bytecode,
			Args:     ctorArgs,
		})
	}
	sent := func(tx *models.PendingTx) error {
		pending := unit
		pending.Address = tx.ContractAddress
		pending.Deployer = tx.From
		pending.TxHash = tx.TxHash
		pending.Status = models.UnitPending
		return l.append(ctx, models.RecordEntry{Kind: models.EntryUnit, Unit: &pending})
	}

	tx, receipt, err := s.transact(ctx, gate, phase, unit.Role, unit.Name, send, sent)
	if err != nil {
		if tx != nil && errors.Is(err, domain.ErrTransactionReverted) {
			if dropErr := l.append(ctx, droppedUnit(unit.Name, tx.TxHash)); dropErr != nil {
				s.log.Error("failed to record dropped creation", "unit", unit.Name, "tx", tx.TxHash.Hex(), "error", dropErr)
			}
		} else if tx != nil {
			s.log.Warn("creation left pending", "unit", unit.Name, "tx", tx.TxHash.Hex(), "error", err)
		}
		return nil, err
	}

	deployed := confirmedUnit(unit, receipt)
	if err := l.append(ctx, models.RecordEntry{Kind: models.EntryUnit, Unit: &deployed}); err != nil {
		return nil, err
	}
	s.log.Info("unit deployed", "unit", unit.Name, "address", deployed.Address.Hex(), "tx", receipt.TxHash.Hex())
	return &deployed, nil
}

// call submits calldata to target signed by role. sent may be nil.
func (s *submitter) call(ctx, gate context.Context, phase domain.Phase, role models.Role, label string, target common.Address, data []byte, sent func(*models.PendingTx) error) (*models.PendingTx, *models.Receipt, error) {
	s.log.Debug("submitting call", "call", label, "target", target.Hex(), "role", role)
	send := func(ctx context.Context) (*models.PendingTx, error) {
		return s.network.SendCall(ctx, role, models.Call{Label: label, To: target, Data: data})
	}
	return s.transact(ctx, gate, phase, role, label, send, sent)
}

// readAddress calls a zero-argument getter returning an address.
func (s *submitter) readAddress(ctx context.Context, target common.Address, getter string) (common.Address, error) {
	data, err := abicodec.EncodeCall(getter)
	if err != nil {
		return common.Address{}, err
	}
	out, err := s.network.ReadState(ctx, target, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("read %s on %s: %w", getter, target.Hex(), err)
	}
	var addr common.Address
	if err := abicodec.DecodeReturns(getter, "address", out, &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// deployUnit creates u and every contract it wraps, appending each
// creation to the ledger. Implementations already in the ledger are reused.
// gate stops further sends; a send that went out is waited for under ctx.
func (s *submitter) deployUnit(ctx, gate context.Context, l *ledger, u *models.Unit, origin string) error {
	role := u.SubmitterRole()

	if u.Kind == models.KindExternal {
		return l.append(ctx, models.RecordEntry{Kind: models.EntryUnit, Unit: &models.UnitRecord{
			Name:    u.Name,
			Kind:    u.Kind,
			Address: u.Address,
			Status:  models.UnitDeployed,
			Origin:  origin,
		}})
	}

	if u.Kind == models.KindContract {
		ctorArgs, err := s.encodeArgs(l, u.Args)
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
		_, err = s.create(ctx, gate, l, domain.PhaseDeploy, models.UnitRecord{
			Name:     u.Name,
			Kind:     u.Kind,
			Artifact: u.Artifact,
			Role:     role,
			Origin:   origin,
		}, ctorArgs)
		return err
	}

	var implementation common.Address
	if u.Kind.HasImplementation() {
		implName := u.ImplementationName()
		if rec, ok := l.unit(implName); ok {
			s.log.Info("reusing recorded implementation", "unit", u.Name, "implementation", rec.Address.Hex())
			implementation = rec.Address
		} else {
			ctorArgs, err := s.encodeArgs(l, u.Args)
			if err != nil {
				return fmt.Errorf("unit %s: %w", u.Name, err)
			}
			rec, err := s.create(ctx, gate, l, domain.PhaseDeploy, models.UnitRecord{
				Name:     implName,
				Kind:     models.KindContract,
				Artifact: u.Artifact,
				Parent:   u.Name,
				Role:     role,
				Origin:   origin,
			}, ctorArgs)
			if err != nil {
				return err
			}
			implementation = rec.Address
		}
	}

	wrapperArgs, err := s.wrapperArgs(l, u, role, implementation)
	if err != nil {
		return fmt.Errorf("unit %s: %w", u.Name, err)
	}
	_, err = s.create(ctx, gate, l, domain.PhaseDeploy, models.UnitRecord{
		Name:     u.Name,
		Kind:     u.Kind,
		Artifact: u.ProxyArtifactName(),
		Role:     role,
		Origin:   origin,
	}, wrapperArgs)
	return err
}

func (s *submitter) encodeArgs(l *ledger, args []models.Arg) ([]byte, error) {
	values, err := l.resolve(args)
	if err != nil {
		return nil, err
	}
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = a.Type
	}
	return abicodec.EncodeTuple(types, values)
}

// wrapperArgs encodes the constructor of the proxy or beacon around u.
func (s *submitter) wrapperArgs(l *ledger, u *models.Unit, role models.Role, implementation common.Address) ([]byte, error) {
	initData := []byte{}
	if u.Initializer != "" {
		values, err := l.resolve(u.InitArgs)
		if err != nil {
			return nil, err
		}
		initData, err = abicodec.EncodeCall(u.Initializer, values...)
		if err != nil {
			return nil, fmt.Errorf("initializer %s: %w", u.Initializer, err)
		}
	}

	owner := func() (common.Address, error) {
		if u.Owner == nil {
			return s.signers.Address(role)
		}
		return l.resolveOne(*u.Owner)
	}

	switch u.Kind {
	case models.KindUUPSProxy:
		return abicodec.EncodeTuple([]string{"address", "bytes"}, []any{implementation, initData})
	case models.KindTransparentProxy:
		admin, err := owner()
		if err != nil {
			return nil, err
		}
		return abicodec.EncodeTuple([]string{"address", "address", "bytes"}, []any{implementation, admin, initData})
	case models.KindBeacon:
		beaconOwner, err := owner()
		if err != nil {
			return nil, err
		}
		return abicodec.EncodeTuple([]string{"address", "address"}, []any{implementation, beaconOwner})
	case models.KindBeaconProxy:
		beacon, err := l.resolveOne(*u.Beacon)
		if err != nil {
			return nil, err
		}
		return abicodec.EncodeTuple([]string{"address", "bytes"}, []any{beacon, initData})
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", domain.ErrInvalidUnit, u.Kind)
	}
}

// confirmedUnit settles a pending unit with its receipt.
func confirmedUnit(unit models.UnitRecord, receipt *models.Receipt) models.UnitRecord {
	unit.Deployer = receipt.From
	unit.TxHash = receipt.TxHash
	unit.BlockNumber = receipt.BlockNumber
	unit.Status = models.UnitDeployed
	if receipt.ContractAddress != (common.Address{}) {
		unit.Address = receipt.ContractAddress
	}
	return unit
}

func droppedUnit(name string, hash common.Hash) models.RecordEntry {
	return models.RecordEntry{Kind: models.EntryUnit, Unit: &models.UnitRecord{
		Name:   name,
		TxHash: hash,
		Status: models.UnitDropped,
	}}
}
