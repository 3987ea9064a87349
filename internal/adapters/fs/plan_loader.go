package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// planFile is the YAML layout of a deployment plan.
type planFile struct {
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Units   []unitFile   `yaml:"units"`
	Wiring  []wiringFile `yaml:"wiring"`
}

type unitFile struct {
	Name          string    `yaml:"name"`
	Kind          string    `yaml:"kind"`
	Artifact      string    `yaml:"artifact"`
	Args          []argFile `yaml:"args"`
	Initializer   string    `yaml:"initializer"`
	InitArgs      []argFile `yaml:"init_args"`
	ProxyArtifact string    `yaml:"proxy_artifact"`
	Beacon        string    `yaml:"beacon"`
	Owner         string    `yaml:"owner"`
	Address       string    `yaml:"address"`
	Role          string    `yaml:"role"`
	// ExternalFromEnv turns the unit into an external one when the named
	// environment variable holds an address.
	ExternalFromEnv string `yaml:"external_from_env"`
}

type wiringFile struct {
	Target      string    `yaml:"target"`
	Function    string    `yaml:"function"`
	Args        []argFile `yaml:"args"`
	Role        string    `yaml:"role"`
	Description string    `yaml:"description"`
	SkipIfSame  []string  `yaml:"skip_if_same"`
}

// argFile accepts either a bare value or a {type, value} mapping.
type argFile struct {
	Type  string
	Value any
}

func (a *argFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		a.Value = node.Value
		return nil
	case yaml.SequenceNode:
		var list []any
		if err := node.Decode(&list); err != nil {
			return err
		}
		a.Value = list
		return nil
	case yaml.MappingNode:
		var typed struct {
			Type  string    `yaml:"type"`
			Value yaml.Node `yaml:"value"`
		}
		if err := node.Decode(&typed); err != nil {
			return err
		}
		a.Type = typed.Type
		if typed.Value.Kind == yaml.ScalarNode {
			a.Value = typed.Value.Value
			return nil
		}
		return typed.Value.Decode(&a.Value)
	default:
		return fmt.Errorf("line %d: unsupported argument form", node.Line)
	}
}

func (a argFile) parse() (models.Arg, error) {
	return models.ParseArg(a.Type, a.Value)
}

// PlanLoaderAdapter reads YAML deployment plans.
type PlanLoaderAdapter struct {
	projectRoot string
	version     models.ProtocolVersion
}

// NewPlanLoaderAdapter creates a new plan loader
func NewPlanLoaderAdapter(cfg *config.RuntimeConfig) *PlanLoaderAdapter {
	return &PlanLoaderAdapter{projectRoot: cfg.ProjectRoot, version: cfg.ProtocolVersion}
}

// LoadPlan resolves path against the working directory, then the project root.
func (l *PlanLoaderAdapter) LoadPlan(ctx context.Context, path string) (*domain.Plan, error) {
	resolved := path
	if _, err := os.Stat(resolved); err != nil && !filepath.IsAbs(path) {
		resolved = filepath.Join(l.projectRoot, path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	plan, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return plan, nil
}

// Parse builds a plan from YAML. Units are validated in declaration order,
// so a constructor may only reference units declared above it.
func (l *PlanLoaderAdapter) Parse(data []byte) (*domain.Plan, error) {
	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	version := l.version
	if file.Version != "" {
		v, err := models.ParseProtocolVersion(file.Version)
		if err != nil {
			return nil, err
		}
		version = v
	}
	if version == "" {
		version = models.ProtocolV2
	}

	plan := domain.NewPlan(file.Name, version)
	for i, uf := range file.Units {
		unit, err := uf.build()
		if err != nil {
			return nil, fmt.Errorf("unit %d (%s): %w", i, uf.Name, err)
		}
		if err := plan.AddUnit(unit); err != nil {
			return nil, err
		}
	}
	for i, wf := range file.Wiring {
		step, err := wf.build()
		if err != nil {
			return nil, fmt.Errorf("wiring step %d: %w", i, err)
		}
		if err := plan.AddWiringStep(step); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (uf unitFile) build() (*models.Unit, error) {
	kind, err := models.ParseUnitKind(uf.Kind)
	if err != nil {
		return nil, err
	}
	u := &models.Unit{
		Name:          uf.Name,
		Kind:          kind,
		Artifact:      uf.Artifact,
		Initializer:   uf.Initializer,
		ProxyArtifact: uf.ProxyArtifact,
	}

	if uf.Role != "" {
		if u.Role, err = models.ParseRole(uf.Role); err != nil {
			return nil, err
		}
	}

	address := uf.Address
	if uf.ExternalFromEnv != "" {
		if v := strings.TrimSpace(os.Getenv(uf.ExternalFromEnv)); v != "" {
			address = v
			u.Kind = models.KindExternal
		}
	}
	if u.Kind == models.KindExternal {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("%w: external unit %s has no valid address", domain.ErrInvalidUnit, uf.Name)
		}
		u.Address = common.HexToAddress(address)
		u.Artifact = ""
		return u, nil
	}

	if u.Args, err = parseArgs(uf.Args); err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	if u.InitArgs, err = parseArgs(uf.InitArgs); err != nil {
		return nil, fmt.Errorf("init_args: %w", err)
	}
	if u.Beacon, err = parseAddressArg(uf.Beacon); err != nil {
		return nil, fmt.Errorf("beacon: %w", err)
	}
	if u.Owner, err = parseAddressArg(uf.Owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	return u, nil
}

func (wf wiringFile) build() (*models.WiringStep, error) {
	step := &models.WiringStep{
		Target:      wf.Target,
		Function:    wf.Function,
		Description: wf.Description,
	}

	role := wf.Role
	if role == "" {
		role = string(models.RoleDeployer)
	}
	var err error
	if step.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	if step.Args, err = parseArgs(wf.Args); err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	for _, s := range wf.SkipIfSame {
		r, err := models.ParseRole(strings.TrimPrefix(s, "@"))
		if err != nil {
			return nil, fmt.Errorf("skip_if_same: %w", err)
		}
		step.SkipIfSame = append(step.SkipIfSame, r)
	}
	return step, nil
}

func parseArgs(in []argFile) ([]models.Arg, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]models.Arg, len(in))
	for i, a := range in {
		arg, err := a.parse()
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = arg
	}
	return out, nil
}

func parseAddressArg(raw string) (*models.Arg, error) {
	if raw == "" {
		return nil, nil
	}
	arg, err := models.ParseArg("address", raw)
	if err != nil {
		return nil, err
	}
	return &arg, nil
}

// Ensure the adapter implements the interface
var _ usecase.PlanLoader = (*PlanLoaderAdapter)(nil)
