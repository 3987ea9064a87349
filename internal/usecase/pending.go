package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// settler resolves transactions an interrupted run left pending in the
// record: each is confirmed, dropped if it reverted, or reported.
type settler struct {
	cfg     *config.RuntimeConfig
	network Network
	checker BlockchainChecker
	log     *slog.Logger
}

// settle runs before any new transaction is sent. With abandon set, a
// transaction the chain does not know is dropped so it is sent again.
func (s settler) settle(ctx context.Context, l *ledger, abandon bool) ([]string, error) {
	snapshot := l.snapshot()
	units := snapshot.PendingUnits()
	step, stepPending := snapshot.PendingWiring()
	if len(units) == 0 && !stepPending {
		return nil, nil
	}
	if err := s.checker.Connect(ctx, s.cfg.Network.RPCURL, s.cfg.Network.ChainID); err != nil {
		return nil, fmt.Errorf("failed to connect checker: %w", err)
	}

	var settled []string
	for _, u := range units {
		tx := &models.PendingTx{Label: u.Name, TxHash: u.TxHash, From: u.Deployer, ContractAddress: u.Address}
		receipt, err := s.resolve(ctx, tx, abandon)
		if err != nil {
			return settled, fmt.Errorf("unit %s: %w", u.Name, err)
		}
		if receipt == nil || !receipt.Success {
			s.log.Warn("dropping pending creation", "unit", u.Name, "tx", u.TxHash.Hex())
			if err := l.append(ctx, droppedUnit(u.Name, u.TxHash)); err != nil {
				return settled, err
			}
			continue
		}
		deployed := confirmedUnit(*u, receipt)
		if err := l.append(ctx, models.RecordEntry{Kind: models.EntryUnit, Unit: &deployed}); err != nil {
			return settled, err
		}
		s.log.Info("pending creation confirmed", "unit", u.Name, "address", deployed.Address.Hex(), "tx", u.TxHash.Hex())
		settled = append(settled, u.Name)
	}

	if stepPending {
		label := fmt.Sprintf("%s.%s", step.Target, step.Function)
		tx := &models.PendingTx{Label: label, TxHash: step.TxHash, From: step.Sender}
		receipt, err := s.resolve(ctx, tx, abandon)
		if err != nil {
			return settled, fmt.Errorf("wiring step %d: %w", step.Index, err)
		}
		next := *step
		if receipt == nil || !receipt.Success {
			s.log.Warn("dropping pending wiring step", "step", step.Index, "call", label, "tx", step.TxHash.Hex())
			next.Status = models.WiringDropped
		} else {
			next.Status = models.WiringApplied
			s.log.Info("pending wiring step confirmed", "step", step.Index, "call", label, "tx", step.TxHash.Hex())
			settled = append(settled, label)
		}
		if err := l.append(ctx, models.RecordEntry{Kind: models.EntryWiring, Wiring: &next}); err != nil {
			return settled, err
		}
	}
	return settled, nil
}

// resolve returns the receipt of tx, or nil if tx should be dropped.
func (s settler) resolve(ctx context.Context, tx *models.PendingTx, abandon bool) (*models.Receipt, error) {
	exists, _, reason, err := s.checker.CheckTransactionExists(ctx, tx.TxHash)
	if err != nil {
		return nil, fmt.Errorf("check transaction %s: %w", tx.TxHash.Hex(), err)
	}
	if !exists {
		if abandon {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: tx %s: %s; wait for it to be mined, or re-run with --abandon-pending to send it again",
			domain.ErrTransactionPending, tx.TxHash.Hex(), reason)
	}

	receipt, err := s.network.WaitMined(ctx, tx)
	if errors.Is(err, domain.ErrTransactionReverted) {
		return receipt, nil
	}
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
