package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUnit is returned when a plan declares the same unit twice
	ErrDuplicateUnit = errors.New("duplicate unit")

	// ErrUnknownUnit is returned when a name does not match any declared or recorded unit
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrInvalidUnit is returned when a unit's fields are inconsistent with its kind
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrInvalidWiringStep is returned when a wiring step cannot be encoded
	ErrInvalidWiringStep = errors.New("invalid wiring step")

	// ErrMissingSigner is returned when a required role has no signing key
	ErrMissingSigner = errors.New("missing signer")

	// ErrRoleZeroAddress is returned when a role resolves to the zero address
	ErrRoleZeroAddress = errors.New("role resolves to the zero address")

	// ErrInvalidPrivateKey is returned when role key material cannot be parsed
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrTransactionReverted is returned when a confirmed transaction has status 0
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrTransactionPending is returned when a recorded transaction has neither
	// confirmed nor been dropped
	ErrTransactionPending = errors.New("transaction pending")

	// ErrUnitRecorded is returned when an upgrade would reuse a unit that an
	// earlier deployment recorded under the same name
	ErrUnitRecorded = errors.New("unit already recorded")

	// ErrPlanDrift is returned when the record holds a step the plan no longer declares
	ErrPlanDrift = errors.New("deployment record does not match plan")

	// ErrNetworkMismatch is returned when the node's chain ID differs from configuration
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrNoNetwork is returned when a command needs a network but none is configured
	ErrNoNetwork = errors.New("no network selected")

	// ErrNotDevnet is returned when a test-network-only operation targets a live network
	ErrNotDevnet = errors.New("operation only allowed on devnets")

	// ErrArtifactNotFound is returned when no compiled artifact matches a name
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrAborted is returned when the operator declines a confirmation prompt
	ErrAborted = errors.New("aborted by operator")
)

// EncodingError is a value that does not fit its declared ABI type.
type EncodingError = abicodec.EncodingError

// CyclicConstructorDependencyError is returned when a unit's construction
// references a unit that is not declared before it.
type CyclicConstructorDependencyError struct {
	Unit      string
	Reference string
}

func (e *CyclicConstructorDependencyError) Error() string {
	if e.Unit == e.Reference {
		return fmt.Sprintf("cyclic constructor dependency: unit %s references itself", e.Unit)
	}
	return fmt.Sprintf("cyclic constructor dependency: unit %s references %s, which is not declared before it (resolve it with a wiring step)", e.Unit, e.Reference)
}

// DerivationMismatchError is returned when a locally derived address
// disagrees with the address the factory reports.
type DerivationMismatchError struct {
	Factory  common.Address
	Salt     common.Hash
	Expected common.Address
	Actual   common.Address
}

func (e *DerivationMismatchError) Error() string {
	return fmt.Sprintf("derivation mismatch for factory %s (salt %s): derived %s, on-chain %s",
		e.Factory.Hex(), e.Salt.Hex(), e.Expected.Hex(), e.Actual.Hex())
}

// Phase names the orchestration phase a failure happened in.
type Phase string

const (
	PhaseDeploy  Phase = "deploy"
	PhaseWiring  Phase = "wiring"
	PhaseVerify  Phase = "verify"
	PhaseUpgrade Phase = "upgrade"
)

// TransactionFailureError is returned when a submitted transaction is
// rejected or reverts. Record is the deployment record at the time of the
// failure, so the run can be resumed.
type TransactionFailureError struct {
	Phase Phase
	Index int
	Name  string
	// TxHash is set once the transaction was sent.
	TxHash common.Hash
	Err    error
	Record *models.DeploymentRecord
}

func (e *TransactionFailureError) Error() string {
	var b strings.Builder
	switch e.Phase {
	case PhaseWiring:
		fmt.Fprintf(&b, "wiring step %d (%s) failed", e.Index, e.Name)
	case PhaseDeploy:
		fmt.Fprintf(&b, "deployment of unit %d (%s) failed", e.Index, e.Name)
	default:
		fmt.Fprintf(&b, "%s of %s failed", e.Phase, e.Name)
	}
	if e.TxHash != (common.Hash{}) {
		fmt.Fprintf(&b, " (tx %s)", e.TxHash.Hex())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransactionFailureError) Unwrap() error {
	return e.Err
}

// UpgradeVerificationFailedError is returned when the upgrade transaction
// succeeded but the target reports a different implementation.
type UpgradeVerificationFailedError struct {
	Target   common.Address
	Expected common.Address
	Actual   common.Address
}

func (e *UpgradeVerificationFailedError) Error() string {
	return fmt.Sprintf("upgrade verification failed on %s: expected implementation %s, reported %s",
		e.Target.Hex(), e.Expected.Hex(), e.Actual.Hex())
}

// UnitNotFoundError is returned when a lookup by unit name fails.
type UnitNotFoundError struct {
	Name        string
	Network     string
	Suggestions []string
}

func (e *UnitNotFoundError) Error() string {
	msg := fmt.Sprintf("no unit named %q in the %s deployment record", e.Name, e.Network)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *UnitNotFoundError) Unwrap() error {
	return ErrUnknownUnit
}

// MissingSignersError lists the roles a plan needs but has no keys for.
type MissingSignersError struct {
	Roles []models.Role
}

func (e *MissingSignersError) Error() string {
	names := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		names[i] = string(r)
	}
	return fmt.Sprintf("missing signer for role(s): %s", strings.Join(names, ", "))
}

func (e *MissingSignersError) Unwrap() error {
	return ErrMissingSigner
}
