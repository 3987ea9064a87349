package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

// DeployParams contains parameters for deploying a plan
type DeployParams struct {
	Plan *domain.Plan
	// Concurrency bounds parallel unit deployments; 0 uses the configured value.
	Concurrency int
	// Verify checks on-chain code for every recorded unit after wiring.
	Verify bool
	// AbandonPending drops recorded transactions the chain does not know,
	// so they are sent again.
	AbandonPending bool
}

// DeployResult contains the result of a plan run
type DeployResult struct {
	Record        *models.DeploymentRecord
	Deployed      []string
	Skipped       []string
	WiringApplied []int
	WiringSkipped []int
	WiringResumed []int
	Verified      []string
	Unverified    map[string]string
	RoleBalances  map[models.Role]*big.Int
	// Settled lists units and wiring calls a previous run left pending that
	// have now confirmed.
	Settled []string
}

// DeployPlan executes a plan in two phases: construction of every unit in
// dependency order, then the ordered wiring steps.
type DeployPlan struct {
	cfg      *config.RuntimeConfig
	network  Network
	signers  SignerSet
	records  RecordStore
	checker  BlockchainChecker
	progress ProgressSink
	log      *slog.Logger
	submit   *submitter
}

// NewDeployPlan creates a new DeployPlan use case
func NewDeployPlan(
	cfg *config.RuntimeConfig,
	network Network,
	signers SignerSet,
	records RecordStore,
	artifacts ArtifactStore,
	checker BlockchainChecker,
	progress ProgressSink,
	log *slog.Logger,
) *DeployPlan {
	if progress == nil {
		progress = NopProgress{}
	}
	return &DeployPlan{
		cfg:      cfg,
		network:  network,
		signers:  signers,
		records:  records,
		checker:  checker,
		progress: progress,
		log:      log,
		submit:   newSubmitter(network, signers, artifacts, log),
	}
}

// Run deploys the plan, resuming from the network's deployment record.
func (d *DeployPlan) Run(ctx context.Context, params DeployParams) (*DeployResult, error) {
	if d.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}
	plan := params.Plan

	if err := d.preflight(plan); err != nil {
		return nil, err
	}

	chainID, err := d.network.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if d.cfg.Network.ChainID != 0 && d.cfg.Network.ChainID != chainID {
		return nil, fmt.Errorf("%w: %s is configured as chain %d but the node reports %d",
			domain.ErrNetworkMismatch, d.cfg.Network.Name, d.cfg.Network.ChainID, chainID)
	}

	record, err := d.records.Load(ctx, d.cfg.Network.Name, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment record: %w", err)
	}

	result := &DeployResult{
		Unverified:   make(map[string]string),
		RoleBalances: d.balances(ctx, plan),
	}
	l := newLedger(record, d.records, d.signers)

	d.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "plan_loaded",
		Total:   len(plan.Units),
		Message: fmt.Sprintf("Deploying %s to %s (record v%d)", plan.Name, d.cfg.Network.Name, record.Version),
	})

	settled, err := settler{cfg: d.cfg, network: d.network, checker: d.checker, log: d.log}.settle(ctx, l, params.AbandonPending)
	result.Settled = settled
	if err != nil {
		return d.fail(result, l, err)
	}

	if err := d.construct(ctx, plan, l, params.Concurrency, result); err != nil {
		return d.fail(result, l, err)
	}
	if err := d.wire(ctx, plan, l, result); err != nil {
		return d.fail(result, l, err)
	}
	if params.Verify {
		if err := d.verify(ctx, l, result); err != nil {
			return d.fail(result, l, err)
		}
	}

	result.Record = l.snapshot()
	d.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "deploy_completed",
		Message: fmt.Sprintf("%d deployed, %d already recorded, %d wiring steps applied", len(result.Deployed), len(result.Skipped), len(result.WiringApplied)),
	})
	return result, nil
}

// fail attaches the current record to err so the operator can resume.
func (d *DeployPlan) fail(result *DeployResult, l *ledger, err error) (*DeployResult, error) {
	result.Record = l.snapshot()
	var txErr *domain.TransactionFailureError
	if errors.As(err, &txErr) {
		txErr.Record = result.Record
	}
	return result, err
}

// preflight rejects the plan before any network call if a role is missing.
func (d *DeployPlan) preflight(plan *domain.Plan) error {
	var missing []models.Role
	for _, role := range plan.SigningRoles() {
		if !d.signers.CanSign(role) {
			missing = append(missing, role)
		}
	}
	for _, role := range plan.ReferencedRoles() {
		if _, err := d.signers.Address(role); err != nil {
			if errors.Is(err, domain.ErrRoleZeroAddress) {
				return fmt.Errorf("role %s: %w", role, err)
			}
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingSignersError{Roles: dedupRoles(missing)}
	}
	return nil
}

func (d *DeployPlan) balances(ctx context.Context, plan *domain.Plan) map[models.Role]*big.Int {
	out := make(map[models.Role]*big.Int)
	for _, role := range plan.SigningRoles() {
		addr, err := d.signers.Address(role)
		if err != nil {
			continue
		}
		balance, err := d.network.Balance(ctx, addr)
		if err != nil {
			d.log.Warn("failed to read balance", "role", role, "address", addr.Hex(), "error", err)
			continue
		}
		out[role] = balance
		d.log.Info("signer", "role", role, "address", addr.Hex(), "balance", balance.String())
	}
	return out
}

// construct deploys every missing unit wave by wave. Units in a wave have
// no references to each other and share a bounded worker pool. The first
// failure stops new sends through the group context; transactions already
// sent are waited for under ctx so their outcome is recorded.
func (d *DeployPlan) construct(ctx context.Context, plan *domain.Plan, l *ledger, concurrency int, result *DeployResult) error {
	if concurrency <= 0 {
		concurrency = d.cfg.Concurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	done := 0
	for _, level := range plan.Levels() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, u := range level {
			if rec, ok := l.unit(u.Name); ok {
				d.log.Debug("unit already recorded", "unit", u.Name, "address", rec.Address.Hex())
				result.Skipped = append(result.Skipped, u.Name)
				d.progress.OnProgress(ctx, ProgressEvent{Stage: "unit_skipped", Message: u.Name, Metadata: rec})
				mu.Lock()
				done++
				mu.Unlock()
				continue
			}

			u := u
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				d.progress.OnProgress(ctx, ProgressEvent{Stage: "unit_starting", Message: u.Name, Spinner: true})

				if err := d.submit.deployUnit(ctx, gctx, l, u, ""); err != nil {
					var txErr *domain.TransactionFailureError
					if errors.As(err, &txErr) {
						txErr.Index = plan.Position(u.Name)
					}
					return err
				}

				mu.Lock()
				done++
				result.Deployed = append(result.Deployed, u.Name)
				current := done
				mu.Unlock()

				rec, _ := l.unit(u.Name)
				d.progress.OnProgress(ctx, ProgressEvent{
					Stage:    "unit_deployed",
					Current:  current,
					Total:    len(plan.Units),
					Message:  u.Name,
					Metadata: rec,
				})
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	sort.SliceStable(result.Deployed, func(i, j int) bool {
		return plan.Position(result.Deployed[i]) < plan.Position(result.Deployed[j])
	})
	return nil
}

// wire applies wiring steps strictly in order, each confirmed before the next.
func (d *DeployPlan) wire(ctx context.Context, plan *domain.Plan, l *ledger, result *DeployResult) error {
	for _, step := range plan.Wiring {
		label := fmt.Sprintf("%s.%s", step.Target, step.Function)

		if rec, ok := l.wiring(step.Index); ok {
			if rec.Target != step.Target || rec.Function != step.Function {
				return fmt.Errorf("%w: step %d is recorded as %s.%s but the plan declares %s",
					domain.ErrPlanDrift, step.Index, rec.Target, rec.Function, label)
			}
			result.WiringResumed = append(result.WiringResumed, step.Index)
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		sender, err := d.signers.Address(step.Role)
		if err != nil {
			return fmt.Errorf("wiring step %d: %w", step.Index, err)
		}

		skip, err := d.skipStep(step)
		if err != nil {
			return fmt.Errorf("wiring step %d: %w", step.Index, err)
		}
		if skip {
			d.log.Info("wiring step skipped", "step", step.Index, "call", label, "reason", "roles resolve to the same address")
			if err := l.append(ctx, models.RecordEntry{Kind: models.EntryWiring, Wiring: &models.WiringRecord{
				Index:    step.Index,
				Target:   step.Target,
				Function: step.Function,
				Role:     step.Role,
				Sender:   sender,
				Status:   models.WiringSkipped,
			}}); err != nil {
				return err
			}
			result.WiringSkipped = append(result.WiringSkipped, step.Index)
			d.progress.OnProgress(ctx, ProgressEvent{
				Stage:   "wiring_skipped",
				Current: step.Index + 1,
				Total:   len(plan.Wiring),
				Message: label,
			})
			continue
		}

		d.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "wiring_starting",
			Current: step.Index + 1,
			Total:   len(plan.Wiring),
			Message: label,
			Spinner: true,
		})

		target, err := wiringTarget(l, step)
		if err != nil {
			return err
		}
		values, err := l.resolve(step.Args)
		if err != nil {
			return fmt.Errorf("wiring step %d: %w", step.Index, err)
		}
		data, err := abicodec.EncodeCall(step.Function, values...)
		if err != nil {
			return fmt.Errorf("wiring step %d: %w", step.Index, err)
		}

		pending := func(tx *models.PendingTx) error {
			return l.append(ctx, models.RecordEntry{Kind: models.EntryWiring, Wiring: &models.WiringRecord{
				Index:    step.Index,
				Target:   step.Target,
				Function: step.Function,
				Role:     step.Role,
				Sender:   tx.From,
				TxHash:   tx.TxHash,
				Status:   models.WiringPending,
			}})
		}
		tx, receipt, err := d.submit.call(ctx, ctx, domain.PhaseWiring, step.Role, label, target, data, pending)
		if err != nil {
			var txErr *domain.TransactionFailureError
			if errors.As(err, &txErr) {
				txErr.Index = step.Index
			}
			if tx != nil && errors.Is(err, domain.ErrTransactionReverted) {
				if dropErr := l.append(ctx, droppedWiring(step, tx.TxHash)); dropErr != nil {
					d.log.Error("failed to record dropped wiring step", "step", step.Index, "tx", tx.TxHash.Hex(), "error", dropErr)
				}
			}
			return err
		}

		if err := l.append(ctx, models.RecordEntry{Kind: models.EntryWiring, Wiring: &models.WiringRecord{
			Index:    step.Index,
			Target:   step.Target,
			Function: step.Function,
			Role:     step.Role,
			Sender:   receipt.From,
			TxHash:   receipt.TxHash,
			Status:   models.WiringApplied,
		}}); err != nil {
			return err
		}
		result.WiringApplied = append(result.WiringApplied, step.Index)
		d.log.Info("wiring step applied", "step", step.Index, "call", label, "role", step.Role, "tx", receipt.TxHash.Hex())
		d.progress.OnProgress(ctx, ProgressEvent{
			Stage:   "wiring_applied",
			Current: step.Index + 1,
			Total:   len(plan.Wiring),
			Message: label,
		})
	}
	return nil
}

func droppedWiring(step *models.WiringStep, hash common.Hash) models.RecordEntry {
	return models.RecordEntry{Kind: models.EntryWiring, Wiring: &models.WiringRecord{
		Index:    step.Index,
		Target:   step.Target,
		Function: step.Function,
		Role:     step.Role,
		TxHash:   hash,
		Status:   models.WiringDropped,
	}}
}

func (d *DeployPlan) skipStep(step *models.WiringStep) (bool, error) {
	if len(step.SkipIfSame) != 2 {
		return false, nil
	}
	a, err := d.signers.Address(step.SkipIfSame[0])
	if err != nil {
		return false, err
	}
	b, err := d.signers.Address(step.SkipIfSame[1])
	if err != nil {
		return false, err
	}
	return a == b, nil
}

func wiringTarget(l *ledger, step *models.WiringStep) (common.Address, error) {
	rec, ok := l.unit(step.Target)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: wiring step %d targets %s, which is not recorded", domain.ErrUnknownUnit, step.Index, step.Target)
	}
	return rec.Address, nil
}

// verify marks every recorded unit with on-chain code as verified.
func (d *DeployPlan) verify(ctx context.Context, l *ledger, result *DeployResult) error {
	if err := d.checker.Connect(ctx, d.cfg.Network.RPCURL, d.cfg.Network.ChainID); err != nil {
		return fmt.Errorf("failed to connect checker: %w", err)
	}

	snapshot := l.snapshot()
	for _, name := range snapshot.Order {
		u := snapshot.Units[name]
		if u.Status == models.UnitVerified {
			result.Verified = append(result.Verified, name)
			continue
		}

		exists, reason, err := d.checker.CheckDeploymentExists(ctx, u.Address)
		if err != nil {
			return fmt.Errorf("verify %s: %w", name, err)
		}
		if !exists {
			result.Unverified[name] = reason
			d.log.Warn("unit not verified", "unit", name, "address", u.Address.Hex(), "reason", reason)
			continue
		}

		verified := *u
		verified.Status = models.UnitVerified
		if err := l.append(ctx, models.RecordEntry{Kind: models.EntryUnit, Unit: &verified}); err != nil {
			return err
		}
		result.Verified = append(result.Verified, name)
	}
	return nil
}

func dedupRoles(roles []models.Role) []models.Role {
	seen := make(map[models.Role]bool)
	var out []models.Role
	for _, r := range models.Roles {
		for _, candidate := range roles {
			if candidate == r && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
