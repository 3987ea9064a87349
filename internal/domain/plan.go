package domain

import (
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

var unitNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Plan is a deployment graph declared in topological order. Constructor
// references may only point backwards; cycles are closed with wiring steps.
type Plan struct {
	Name    string
	Version models.ProtocolVersion
	Units   []*models.Unit
	Wiring  []*models.WiringStep

	index map[string]int
}

// NewPlan returns an empty plan.
func NewPlan(name string, version models.ProtocolVersion) *Plan {
	return &Plan{
		Name:    name,
		Version: version,
		index:   make(map[string]int),
	}
}

// Unit returns a declared unit by name.
func (p *Plan) Unit(name string) (*models.Unit, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.Units[i], true
}

// Position returns the declaration index of a unit.
func (p *Plan) Position(name string) int {
	if i, ok := p.index[name]; ok {
		return i
	}
	return -1
}

// AddUnit appends a unit after validating that everything it references is
// already declared.
func (p *Plan) AddUnit(u *models.Unit) error {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if !unitNamePattern.MatchString(u.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrInvalidUnit, u.Name)
	}
	if _, exists := p.index[u.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, u.Name)
	}
	if u.Kind == "" {
		u.Kind = models.KindContract
	}
	if err := validateUnitShape(u); err != nil {
		return err
	}

	for _, ref := range u.References() {
		if _, declared := p.index[ref]; !declared {
			return &CyclicConstructorDependencyError{Unit: u.Name, Reference: ref}
		}
	}
	for _, a := range allArgs(u) {
		if a.Source != models.ArgUnitRef || a.Field == "" {
			continue
		}
		target := p.Units[p.index[a.Unit]]
		if !target.Kind.HasImplementation() {
			return fmt.Errorf("%w: %s references %s.%s but %s is a %s", ErrInvalidUnit, u.Name, a.Unit, a.Field, a.Unit, target.Kind)
		}
	}

	p.index[u.Name] = len(p.Units)
	p.Units = append(p.Units, u)
	return nil
}

func allArgs(u *models.Unit) []models.Arg {
	args := append([]models.Arg{}, u.Args...)
	args = append(args, u.InitArgs...)
	if u.Beacon != nil {
		args = append(args, *u.Beacon)
	}
	if u.Owner != nil {
		args = append(args, *u.Owner)
	}
	return args
}

func validateUnitShape(u *models.Unit) error {
	invalid := func(format string, a ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidUnit, u.Name, fmt.Sprintf(format, a...))
	}

	switch u.Kind {
	case models.KindExternal:
		if u.Address == (common.Address{}) {
			return invalid("external unit needs an address")
		}
		if len(u.Args) > 0 || u.Initializer != "" {
			return invalid("external unit cannot take arguments")
		}
		return nil
	case models.KindBeaconProxy:
		if u.Beacon == nil {
			return invalid("beacon proxy needs a beacon")
		}
	default:
		if u.Artifact == "" {
			return invalid("%s needs an artifact", u.Kind)
		}
	}

	for i, a := range u.Args {
		if a.Type == "" {
			return invalid("constructor argument %d has no type", i)
		}
	}

	if u.Initializer == "" {
		if len(u.InitArgs) > 0 {
			return invalid("initializer arguments without an initializer")
		}
		return nil
	}
	if u.Kind == models.KindContract || u.Kind == models.KindBeacon {
		return invalid("%s units cannot have an initializer", u.Kind)
	}
	fn, err := abicodec.Func(u.Initializer, "")
	if err != nil {
		return invalid("%v", err)
	}
	if len(fn.Args) != len(u.InitArgs) {
		return invalid("initializer %s takes %d arguments, %d given", u.Initializer, len(fn.Args), len(u.InitArgs))
	}
	return nil
}

// AddWiringStep appends a wiring step. Steps may reference any declared
// unit, which is how constructor cycles are closed.
func (p *Plan) AddWiringStep(step *models.WiringStep) error {
	if _, ok := p.index[step.Target]; !ok {
		return fmt.Errorf("%w: wiring step %d targets %q", ErrUnknownUnit, len(p.Wiring), step.Target)
	}
	for _, ref := range step.References() {
		if _, ok := p.index[ref]; !ok {
			return fmt.Errorf("%w: wiring step %d references %q", ErrUnknownUnit, len(p.Wiring), ref)
		}
	}
	if !lo.Contains(models.Roles, step.Role) {
		return fmt.Errorf("%w: step %d has no valid role (%q)", ErrInvalidWiringStep, len(p.Wiring), step.Role)
	}
	if len(step.SkipIfSame) != 0 && len(step.SkipIfSame) != 2 {
		return fmt.Errorf("%w: step %d: skip_if_same needs exactly two roles", ErrInvalidWiringStep, len(p.Wiring))
	}

	fn, err := abicodec.Func(step.Function, "")
	if err != nil {
		return fmt.Errorf("%w: step %d: %v", ErrInvalidWiringStep, len(p.Wiring), err)
	}
	if len(fn.Args) != len(step.Args) {
		return fmt.Errorf("%w: step %d: %s takes %d arguments, %d given",
			ErrInvalidWiringStep, len(p.Wiring), step.Function, len(fn.Args), len(step.Args))
	}

	step.Index = len(p.Wiring)
	p.Wiring = append(p.Wiring, step)
	return nil
}

// Levels groups units into waves: every unit only depends on units in
// earlier waves, so a wave can be deployed concurrently. Units keep their
// declaration order within a wave.
func (p *Plan) Levels() [][]*models.Unit {
	depth := make(map[string]int, len(p.Units))
	var levels [][]*models.Unit

	for _, u := range p.Units {
		d := 0
		for _, ref := range u.References() {
			if depth[ref]+1 > d {
				d = depth[ref] + 1
			}
		}
		depth[u.Name] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], u)
	}
	return levels
}

// SigningRoles returns the roles that submit transactions, in role order.
func (p *Plan) SigningRoles() []models.Role {
	used := make(map[models.Role]bool)
	for _, u := range p.Units {
		if u.Kind != models.KindExternal {
			used[u.SubmitterRole()] = true
		}
	}
	for _, s := range p.Wiring {
		used[s.Role] = true
	}
	return lo.Filter(models.Roles, func(r models.Role, _ int) bool { return used[r] })
}

// ReferencedRoles returns the roles whose addresses appear as arguments.
func (p *Plan) ReferencedRoles() []models.Role {
	used := make(map[models.Role]bool)
	for _, u := range p.Units {
		for _, r := range u.RoleReferences() {
			used[r] = true
		}
	}
	for _, s := range p.Wiring {
		for _, r := range s.RoleReferences() {
			used[r] = true
		}
	}
	return lo.Filter(models.Roles, func(r models.Role, _ int) bool { return used[r] })
}
