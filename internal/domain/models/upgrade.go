package models

import "github.com/ethereum/go-ethereum/common"

// UpgradeState is the state of a beacon implementation upgrade.
type UpgradeState string

const (
	UpgradeNotStarted             UpgradeState = "NOT_STARTED"
	UpgradeImplementationDeployed UpgradeState = "IMPLEMENTATION_DEPLOYED"
	UpgradeSubmitted              UpgradeState = "UPGRADE_SUBMITTED"
	UpgradeVerified               UpgradeState = "VERIFIED"
	UpgradeVerificationFailed     UpgradeState = "VERIFICATION_FAILED"
)

// Terminal reports whether no further transition is possible.
func (s UpgradeState) Terminal() bool {
	return s == UpgradeVerified || s == UpgradeVerificationFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s UpgradeState) CanTransition(next UpgradeState) bool {
	switch s {
	case UpgradeNotStarted:
		return next == UpgradeImplementationDeployed
	case UpgradeImplementationDeployed:
		// an already-current implementation is verified without a submission
		return next == UpgradeSubmitted || next == UpgradeVerified
	case UpgradeSubmitted:
		return next == UpgradeVerified || next == UpgradeVerificationFailed
	}
	return false
}

// UpgradeResult describes a finished upgrade attempt.
type UpgradeResult struct {
	State          UpgradeState
	Target         common.Address
	Previous       common.Address
	Implementation common.Address
	Reported       common.Address
	TxHash         common.Hash
	// ImplementationReused is true when the implementation was found in the
	// deployment record instead of being created.
	ImplementationReused bool
	// Submitted is false when the target already reported the implementation.
	Submitted bool
	History   []UpgradeState
}
