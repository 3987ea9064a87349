package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// UnitKind describes how a unit is created.
type UnitKind string

const (
	KindContract         UnitKind = "contract"
	KindUUPSProxy        UnitKind = "uups-proxy"
	KindTransparentProxy UnitKind = "transparent-proxy"
	KindBeacon           UnitKind = "beacon"
	KindBeaconProxy      UnitKind = "beacon-proxy"
	// KindExternal is a contract that already exists at a known address.
	KindExternal UnitKind = "external"
)

// ParseUnitKind maps an empty string to KindContract.
func ParseUnitKind(s string) (UnitKind, error) {
	switch k := UnitKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindContract, nil
	case KindContract, KindUUPSProxy, KindTransparentProxy, KindBeacon, KindBeaconProxy, KindExternal:
		return k, nil
	default:
		return "", fmt.Errorf("unknown unit kind %q", s)
	}
}

// HasImplementation reports whether the kind deploys a separate
// implementation contract before the unit itself.
func (k UnitKind) HasImplementation() bool {
	switch k {
	case KindUUPSProxy, KindTransparentProxy, KindBeacon:
		return true
	}
	return false
}

// DefaultProxyArtifact is the creation code wrapped around the unit for each
// proxy kind.
func (k UnitKind) DefaultProxyArtifact() string {
	switch k {
	case KindUUPSProxy:
		return "ERC1967Proxy"
	case KindTransparentProxy:
		return "TransparentUpgradeableProxy"
	case KindBeacon:
		return "UpgradeableBeacon"
	case KindBeaconProxy:
		return "BeaconProxy"
	}
	return ""
}

// UnitStatus is the lifecycle state of a unit.
type UnitStatus string

const (
	UnitPending  UnitStatus = "PENDING"
	UnitDeployed UnitStatus = "DEPLOYED"
	UnitVerified UnitStatus = "VERIFIED"
	// UnitDropped retracts a pending creation that reverted or never landed.
	UnitDropped UnitStatus = "DROPPED"
)

// ArgSource tells where an argument's value comes from.
type ArgSource string

const (
	ArgLiteral ArgSource = "literal"
	ArgUnitRef ArgSource = "unit"
	ArgRoleRef ArgSource = "role"
)

// Arg is one constructor, initializer or call argument.
type Arg struct {
	// Type is the ABI type. Call arguments may leave it empty since the
	// function signature already declares it.
	Type   string
	Source ArgSource
	Value  any
	// Unit is the referenced unit for ArgUnitRef. Field selects the
	// implementation address when set to "implementation".
	Unit  string
	Field string
	Role  Role
}

var unitRefPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)(?:\.([a-z]+))?\}$`)

// ParseArg interprets raw plan values: "${Unit}" and "${Unit.implementation}"
// reference other units, "@role" references a role's address, and anything
// else is a literal.
func ParseArg(typ string, raw any) (Arg, error) {
	s, ok := raw.(string)
	if !ok {
		return Literal(typ, raw), nil
	}
	s = strings.TrimSpace(s)

	if m := unitRefPattern.FindStringSubmatch(s); m != nil {
		if m[2] != "" && m[2] != "implementation" {
			return Arg{}, fmt.Errorf("unknown field %q in reference %s", m[2], s)
		}
		return Arg{Type: typ, Source: ArgUnitRef, Unit: m[1], Field: m[2]}, nil
	}
	if strings.HasPrefix(s, "${") {
		return Arg{}, fmt.Errorf("malformed unit reference %q", s)
	}
	if strings.HasPrefix(s, "@") {
		role, err := ParseRole(s[1:])
		if err != nil {
			return Arg{}, err
		}
		return Arg{Type: typ, Source: ArgRoleRef, Role: role}, nil
	}
	return Literal(typ, s), nil
}

// Literal builds a literal argument.
func Literal(typ string, v any) Arg {
	return Arg{Type: typ, Source: ArgLiteral, Value: v}
}

// UnitRef builds a reference to another unit's address.
func UnitRef(unit string) Arg {
	return Arg{Type: "address", Source: ArgUnitRef, Unit: unit}
}

// RoleRef builds a reference to a role's address.
func RoleRef(role Role) Arg {
	return Arg{Type: "address", Source: ArgRoleRef, Role: role}
}

func (a Arg) String() string {
	switch a.Source {
	case ArgUnitRef:
		if a.Field != "" {
			return fmt.Sprintf("${%s.%s}", a.Unit, a.Field)
		}
		return fmt.Sprintf("${%s}", a.Unit)
	case ArgRoleRef:
		return "@" + string(a.Role)
	default:
		return fmt.Sprintf("%v", a.Value)
	}
}

// Unit is one deployable contract or proxy.
type Unit struct {
	Name     string
	Kind     UnitKind
	Artifact string
	// Args are the constructor arguments of Artifact.
	Args []Arg
	// Initializer is the Solidity signature called through the proxy,
	// e.g. "initialize(address,address)". Empty means no init data.
	Initializer string
	InitArgs    []Arg
	// ProxyArtifact overrides Kind.DefaultProxyArtifact.
	ProxyArtifact string
	// Beacon is required for beacon proxies.
	Beacon *Arg
	// Owner is the admin of transparent proxies and the owner of beacons.
	Owner *Arg
	// Address is only set for external units.
	Address common.Address
	// Role submits the creation transactions. Defaults to deployer.
	Role Role
}

// References returns every unit name the unit's construction depends on.
func (u *Unit) References() []string {
	var refs []string
	collect := func(a *Arg) {
		if a != nil && a.Source == ArgUnitRef {
			refs = append(refs, a.Unit)
		}
	}
	for i := range u.Args {
		collect(&u.Args[i])
	}
	for i := range u.InitArgs {
		collect(&u.InitArgs[i])
	}
	collect(u.Beacon)
	collect(u.Owner)
	return refs
}

// RoleReferences returns the roles whose addresses the unit's arguments use.
func (u *Unit) RoleReferences() []Role {
	var roles []Role
	collect := func(a *Arg) {
		if a != nil && a.Source == ArgRoleRef {
			roles = append(roles, a.Role)
		}
	}
	for i := range u.Args {
		collect(&u.Args[i])
	}
	for i := range u.InitArgs {
		collect(&u.InitArgs[i])
	}
	collect(u.Beacon)
	collect(u.Owner)
	return roles
}

// ProxyArtifactName returns the artifact wrapped around the unit.
func (u *Unit) ProxyArtifactName() string {
	if u.ProxyArtifact != "" {
		return u.ProxyArtifact
	}
	return u.Kind.DefaultProxyArtifact()
}

// ImplementationName is the record name of a proxy's implementation.
func (u *Unit) ImplementationName() string {
	return u.Name + "Implementation"
}

// SubmitterRole returns the role that signs the unit's creations.
func (u *Unit) SubmitterRole() Role {
	if u.Role == "" {
		return RoleDeployer
	}
	return u.Role
}

// WiringStep is a post-deployment configuration call.
type WiringStep struct {
	Index  int
	Target string
	// Function is the Solidity signature, e.g. "addRegistryAddress(address)".
	Function    string
	Args        []Arg
	Role        Role
	Description string
	// SkipIfSame names two roles; when both resolve to the same address the
	// step is recorded as skipped instead of submitted.
	SkipIfSame []Role
}

// References returns every unit the step touches, its target included.
func (s *WiringStep) References() []string {
	refs := []string{s.Target}
	for _, a := range s.Args {
		if a.Source == ArgUnitRef {
			refs = append(refs, a.Unit)
		}
	}
	return refs
}

// RoleReferences returns the roles used as arguments or skip conditions.
func (s *WiringStep) RoleReferences() []Role {
	var roles []Role
	for _, a := range s.Args {
		if a.Source == ArgRoleRef {
			roles = append(roles, a.Role)
		}
	}
	return append(roles, s.SkipIfSame...)
}
