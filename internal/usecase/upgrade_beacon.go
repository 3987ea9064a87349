package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

const (
	DefaultUpgradeTarget   = "DeviceWalletFactory"
	DefaultUpgradeFunction = "updateDeviceWalletImplementation(address)"
	DefaultUpgradeGetter   = "getCurrentDeviceWalletImplementation()"
)

// UpgradeParams contains parameters for rolling a beacon implementation forward
type UpgradeParams struct {
	// Target is the beacon owner: a recorded unit name, @role or hex address.
	Target string
	// Implementation is deployed unless the record already holds it.
	Implementation *models.Unit
	// UpgradeFunction takes the new implementation address as its only argument.
	UpgradeFunction string
	// Getter returns the implementation the target currently reports.
	Getter string
	Role   models.Role
	// AbandonPending drops recorded transactions the chain does not know.
	AbandonPending bool
}

// UpgradeBeacon deploys a new implementation and points a beacon owner at it.
type UpgradeBeacon struct {
	cfg      *config.RuntimeConfig
	network  Network
	signers  SignerSet
	records  RecordStore
	checker  BlockchainChecker
	progress ProgressSink
	log      *slog.Logger
	submit   *submitter
}

// NewUpgradeBeacon creates a new UpgradeBeacon use case
func NewUpgradeBeacon(
	cfg *config.RuntimeConfig,
	network Network,
	signers SignerSet,
	records RecordStore,
	artifacts ArtifactStore,
	checker BlockchainChecker,
	progress ProgressSink,
	log *slog.Logger,
) *UpgradeBeacon {
	if progress == nil {
		progress = NopProgress{}
	}
	return &UpgradeBeacon{
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

type upgradeRun struct {
	result *models.UpgradeResult
}

func (r *upgradeRun) advance(next models.UpgradeState) {
	if !r.result.State.CanTransition(next) {
		panic(fmt.Sprintf("invalid upgrade transition %s -> %s", r.result.State, next))
	}
	r.result.State = next
	r.result.History = append(r.result.History, next)
}

// Run walks NotStarted -> ImplementationDeployed -> UpgradeSubmitted ->
// Verified | VerificationFailed. If the target already reports the
// implementation no transaction is sent and the result is Verified.
func (u *UpgradeBeacon) Run(ctx context.Context, params UpgradeParams) (*models.UpgradeResult, error) {
	if u.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}
	params = withUpgradeDefaults(params)
	if err := validateUpgrade(params); err != nil {
		return nil, err
	}

	var missing []models.Role
	for _, role := range []models.Role{params.Role, params.Implementation.SubmitterRole()} {
		if !u.signers.CanSign(role) {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingSignersError{Roles: dedupRoles(missing)}
	}

	chainID, err := u.network.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	record, err := u.records.Load(ctx, u.cfg.Network.Name, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment record: %w", err)
	}
	l := newLedger(record, u.records, u.signers)

	target, err := ResolveAddress(record, u.signers, params.Target)
	if err != nil {
		return nil, fmt.Errorf("upgrade target: %w", err)
	}

	run := &upgradeRun{result: &models.UpgradeResult{
		State:   models.UpgradeNotStarted,
		Target:  target,
		History: []models.UpgradeState{models.UpgradeNotStarted},
	}}
	result := run.result

	fail := func(err error) (*models.UpgradeResult, error) {
		var txErr *domain.TransactionFailureError
		if errors.As(err, &txErr) {
			txErr.Record = l.snapshot()
		}
		return result, err
	}

	if _, err := (settler{cfg: u.cfg, network: u.network, checker: u.checker, log: u.log}).settle(ctx, l, params.AbandonPending); err != nil {
		return fail(err)
	}

	impl := params.Implementation
	if rec, ok := l.unit(impl.Name); ok {
		// only implementations an earlier upgrade deployed are reused; a
		// plan unit of the same name is already behind the beacon
		if rec.Origin != models.OriginUpgrade {
			return fail(fmt.Errorf("%w: %s was recorded by a plan deployment at %s; pass a new unit name for the implementation",
				domain.ErrUnitRecorded, impl.Name, rec.Address.Hex()))
		}
		result.Implementation = rec.Address
		result.ImplementationReused = true
		u.log.Info("reusing recorded implementation", "unit", impl.Name, "address", rec.Address.Hex())
	} else {
		u.progress.OnProgress(ctx, ProgressEvent{Stage: "implementation_deploying", Message: impl.Name, Spinner: true})
		if err := u.submit.deployUnit(ctx, ctx, l, impl, models.OriginUpgrade); err != nil {
			var txErr *domain.TransactionFailureError
			if errors.As(err, &txErr) {
				txErr.Phase = domain.PhaseUpgrade
			}
			return fail(err)
		}
		rec, _ := l.unit(impl.Name)
		result.Implementation = rec.Address
	}
	run.advance(models.UpgradeImplementationDeployed)

	previous, err := u.submit.readAddress(ctx, target, params.Getter)
	if err != nil {
		return fail(fmt.Errorf("pre-check: %w", err))
	}
	result.Previous = previous
	u.log.Info("current implementation", "target", target.Hex(), "implementation", previous.Hex())

	if previous == result.Implementation {
		result.Reported = previous
		run.advance(models.UpgradeVerified)
		u.log.Info("implementation already current, nothing to submit", "implementation", previous.Hex())
		if err := u.appendRecord(ctx, l, params, result); err != nil {
			return fail(err)
		}
		return result, nil
	}

	data, err := abicodec.EncodeCall(params.UpgradeFunction, result.Implementation)
	if err != nil {
		return fail(err)
	}
	u.progress.OnProgress(ctx, ProgressEvent{Stage: "upgrade_submitting", Message: params.UpgradeFunction, Spinner: true})
	_, receipt, err := u.submit.call(ctx, ctx, domain.PhaseUpgrade, params.Role, params.Target+"."+params.UpgradeFunction, target, data, nil)
	if err != nil {
		return fail(err)
	}
	result.TxHash = receipt.TxHash
	result.Submitted = true
	run.advance(models.UpgradeSubmitted)

	reported, err := u.submit.readAddress(ctx, target, params.Getter)
	if err != nil {
		return fail(fmt.Errorf("post-check: %w", err))
	}
	result.Reported = reported

	var verifyErr error
	if reported == result.Implementation {
		run.advance(models.UpgradeVerified)
		u.log.Info("upgrade verified", "target", target.Hex(), "implementation", reported.Hex(), "tx", receipt.TxHash.Hex())
	} else {
		run.advance(models.UpgradeVerificationFailed)
		verifyErr = &domain.UpgradeVerificationFailedError{Target: target, Expected: result.Implementation, Actual: reported}
		u.log.Error("upgrade verification failed", "target", target.Hex(), "expected", result.Implementation.Hex(), "reported", reported.Hex())
	}

	if err := u.appendRecord(ctx, l, params, result); err != nil {
		return fail(err)
	}
	u.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "upgrade_completed",
		Message: fmt.Sprintf("%s: %s -> %s (%s)", params.Target, result.Previous.Hex(), result.Reported.Hex(), result.State),
	})
	return result, verifyErr
}

func (u *UpgradeBeacon) appendRecord(ctx context.Context, l *ledger, params UpgradeParams, result *models.UpgradeResult) error {
	return l.append(ctx, models.RecordEntry{Kind: models.EntryUpgrade, Upgrade: &models.UpgradeRecord{
		Target:         params.Target,
		TargetAddress:  result.Target,
		Function:       params.UpgradeFunction,
		Previous:       result.Previous,
		Implementation: result.Implementation,
		Reported:       result.Reported,
		TxHash:         result.TxHash,
		State:          result.State,
	}})
}

func withUpgradeDefaults(p UpgradeParams) UpgradeParams {
	if p.Target == "" {
		p.Target = DefaultUpgradeTarget
	}
	if p.UpgradeFunction == "" {
		p.UpgradeFunction = DefaultUpgradeFunction
	}
	if p.Getter == "" {
		p.Getter = DefaultUpgradeGetter
	}
	if p.Role == "" {
		p.Role = models.RoleUpgradeManager
	}
	return p
}

func validateUpgrade(p UpgradeParams) error {
	if p.Implementation == nil {
		return fmt.Errorf("%w: no implementation unit given", domain.ErrInvalidUnit)
	}
	if p.Implementation.Kind == "" {
		p.Implementation.Kind = models.KindContract
	}
	if p.Implementation.Kind != models.KindContract || p.Implementation.Artifact == "" {
		return fmt.Errorf("%w: implementation %s must be a plain contract with an artifact", domain.ErrInvalidUnit, p.Implementation.Name)
	}
	for i, a := range p.Implementation.Args {
		if a.Type == "" {
			return fmt.Errorf("%w: implementation argument %d has no type", domain.ErrInvalidUnit, i)
		}
	}

	fn, err := abicodec.Func(p.UpgradeFunction, "")
	if err != nil {
		return err
	}
	if len(fn.Args) != 1 {
		return fmt.Errorf("upgrade function %s must take exactly one address", p.UpgradeFunction)
	}
	if _, err := abicodec.Func(p.Getter, "address"); err != nil {
		return err
	}
	return nil
}
