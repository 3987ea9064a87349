package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EntryKind identifies the payload of a RecordEntry.
type EntryKind string

const (
	EntryUnit    EntryKind = "unit"
	EntryWiring  EntryKind = "wiring"
	EntryUpgrade EntryKind = "upgrade"
)

// WiringStatus is the outcome of a wiring step.
type WiringStatus string

const (
	WiringPending WiringStatus = "PENDING"
	WiringApplied WiringStatus = "APPLIED"
	WiringSkipped WiringStatus = "SKIPPED"
	WiringDropped WiringStatus = "DROPPED"
)

// OriginUpgrade marks units deployed as the new implementation of an upgrade.
const OriginUpgrade = "upgrade"

// UnitRecord is the persisted state of one deployed unit.
type UnitRecord struct {
	Name     string         `json:"name"`
	Kind     UnitKind       `json:"kind"`
	Artifact string         `json:"artifact,omitempty"`
	Address  common.Address `json:"address"`
	// Parent is set on implementation records and names the proxy unit.
	Parent      string         `json:"parent,omitempty"`
	Deployer    common.Address `json:"deployer,omitempty"`
	Role        Role           `json:"role,omitempty"`
	TxHash      common.Hash    `json:"txHash,omitempty"`
	BlockNumber uint64         `json:"blockNumber,omitempty"`
	Status      UnitStatus     `json:"status"`
	Origin      string         `json:"origin,omitempty"`
}

// Pending reports whether the unit's creation was sent but not confirmed.
func (u *UnitRecord) Pending() bool {
	return u.Status == UnitPending
}

// WiringRecord is the persisted outcome of one wiring step.
type WiringRecord struct {
	Index    int            `json:"index"`
	Target   string         `json:"target"`
	Function string         `json:"function"`
	Role     Role           `json:"role"`
	Sender   common.Address `json:"sender,omitempty"`
	TxHash   common.Hash    `json:"txHash,omitempty"`
	Status   WiringStatus   `json:"status"`
}

// UpgradeRecord is the persisted outcome of an upgrade.
type UpgradeRecord struct {
	Target         string         `json:"target"`
	TargetAddress  common.Address `json:"targetAddress"`
	Function       string         `json:"function"`
	Previous       common.Address `json:"previous"`
	Implementation common.Address `json:"implementation"`
	Reported       common.Address `json:"reported"`
	TxHash         common.Hash    `json:"txHash,omitempty"`
	State          UpgradeState   `json:"state"`
}

// RecordEntry is one line of a network's append-only deployment log.
type RecordEntry struct {
	Seq     uint64         `json:"seq"`
	Kind    EntryKind      `json:"kind"`
	Network string         `json:"network"`
	ChainID uint64         `json:"chainId"`
	At      time.Time      `json:"at"`
	Unit    *UnitRecord    `json:"unit,omitempty"`
	Wiring  *WiringRecord  `json:"wiring,omitempty"`
	Upgrade *UpgradeRecord `json:"upgrade,omitempty"`
}

// DeploymentRecord is the replayed state of a network's log. Version is the
// sequence number of the last applied entry.
type DeploymentRecord struct {
	Network  string
	ChainID  uint64
	Version  uint64
	Units    map[string]*UnitRecord
	Order    []string
	Wiring   []*WiringRecord
	Upgrades []*UpgradeRecord
}

// NewDeploymentRecord returns an empty record for network.
func NewDeploymentRecord(network string, chainID uint64) *DeploymentRecord {
	return &DeploymentRecord{
		Network: network,
		ChainID: chainID,
		Units:   make(map[string]*UnitRecord),
	}
}

// Next stamps entry with the sequence number that follows the record.
func (r *DeploymentRecord) Next(entry RecordEntry) RecordEntry {
	entry.Seq = r.Version + 1
	entry.Network = r.Network
	entry.ChainID = r.ChainID
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	return entry
}

// Apply folds entry into the record. Entries must arrive in sequence.
func (r *DeploymentRecord) Apply(entry RecordEntry) error {
	if entry.Seq != r.Version+1 {
		return fmt.Errorf("record %s: entry seq %d does not follow version %d", r.Network, entry.Seq, r.Version)
	}

	switch entry.Kind {
	case EntryUnit:
		if entry.Unit == nil {
			return fmt.Errorf("record %s: unit entry %d has no unit", r.Network, entry.Seq)
		}
		u := *entry.Unit
		if u.Status == UnitDropped {
			r.dropUnit(u.Name)
			break
		}
		if _, exists := r.Units[u.Name]; !exists {
			r.Order = append(r.Order, u.Name)
		}
		r.Units[u.Name] = &u
	case EntryWiring:
		if entry.Wiring == nil {
			return fmt.Errorf("record %s: wiring entry %d has no step", r.Network, entry.Seq)
		}
		w := *entry.Wiring
		// a pending last step may be settled or dropped in place
		if n := len(r.Wiring); n > 0 && r.Wiring[n-1].Status == WiringPending {
			if w.Index != n-1 {
				return fmt.Errorf("record %s: wiring step %d recorded while step %d is pending", r.Network, w.Index, n-1)
			}
			if w.Status == WiringDropped {
				r.Wiring = r.Wiring[:n-1]
			} else {
				r.Wiring[n-1] = &w
			}
			break
		}
		if w.Index != len(r.Wiring) || w.Status == WiringDropped {
			return fmt.Errorf("record %s: wiring step %d recorded out of order (expected %d)", r.Network, w.Index, len(r.Wiring))
		}
		r.Wiring = append(r.Wiring, &w)
	case EntryUpgrade:
		if entry.Upgrade == nil {
			return fmt.Errorf("record %s: upgrade entry %d has no upgrade", r.Network, entry.Seq)
		}
		u := *entry.Upgrade
		r.Upgrades = append(r.Upgrades, &u)
	default:
		return fmt.Errorf("record %s: unknown entry kind %q", r.Network, entry.Kind)
	}

	r.Version = entry.Seq
	if r.ChainID == 0 {
		r.ChainID = entry.ChainID
	}
	return nil
}

// Unit returns the recorded unit by name.
func (r *DeploymentRecord) Unit(name string) (*UnitRecord, bool) {
	u, ok := r.Units[name]
	return u, ok
}

func (r *DeploymentRecord) dropUnit(name string) {
	if _, ok := r.Units[name]; !ok {
		return
	}
	delete(r.Units, name)
	for i, n := range r.Order {
		if n == name {
			r.Order = append(r.Order[:i:i], r.Order[i+1:]...)
			break
		}
	}
}

// Address returns the confirmed address of a unit.
func (r *DeploymentRecord) Address(name string) (common.Address, bool) {
	u, ok := r.Units[name]
	if !ok || u.Pending() {
		return common.Address{}, false
	}
	return u.Address, true
}

// WiringStep returns the recorded outcome of step index.
func (r *DeploymentRecord) WiringStep(index int) (*WiringRecord, bool) {
	if index < 0 || index >= len(r.Wiring) {
		return nil, false
	}
	return r.Wiring[index], true
}

// Clone returns a deep copy safe to hand to callers.
func (r *DeploymentRecord) Clone() *DeploymentRecord {
	if r == nil {
		return nil
	}
	out := &DeploymentRecord{
		Network:  r.Network,
		ChainID:  r.ChainID,
		Version:  r.Version,
		Units:    make(map[string]*UnitRecord, len(r.Units)),
		Order:    append([]string(nil), r.Order...),
		Wiring:   make([]*WiringRecord, len(r.Wiring)),
		Upgrades: make([]*UpgradeRecord, len(r.Upgrades)),
	}
	for name, u := range r.Units {
		c := *u
		out.Units[name] = &c
	}
	for i, w := range r.Wiring {
		c := *w
		out.Wiring[i] = &c
	}
	for i, u := range r.Upgrades {
		c := *u
		out.Upgrades[i] = &c
	}
	return out
}

// AddressBook flattens the confirmed units to name -> address, sorted by
// name when iterated through Names.
func (r *DeploymentRecord) AddressBook() map[string]common.Address {
	book := make(map[string]common.Address, len(r.Units))
	for name, u := range r.Units {
		if u.Pending() {
			continue
		}
		book[name] = u.Address
	}
	return book
}

// PendingUnits returns units whose creation has not been confirmed, in
// record order.
func (r *DeploymentRecord) PendingUnits() []*UnitRecord {
	var out []*UnitRecord
	for _, name := range r.Order {
		if u := r.Units[name]; u.Pending() {
			out = append(out, u)
		}
	}
	return out
}

// PendingWiring returns the last wiring step if it has not been confirmed.
func (r *DeploymentRecord) PendingWiring() (*WiringRecord, bool) {
	if n := len(r.Wiring); n > 0 && r.Wiring[n-1].Status == WiringPending {
		return r.Wiring[n-1], true
	}
	return nil, false
}

// Names returns the unit names in sorted order.
func (r *DeploymentRecord) Names() []string {
	names := make([]string, 0, len(r.Units))
	for name := range r.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
