package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// PlanRenderer renders plan inspections
type PlanRenderer struct {
	out io.Writer
}

// NewPlanRenderer creates a new plan renderer
func NewPlanRenderer(out io.Writer) *PlanRenderer {
	return &PlanRenderer{out: out}
}

// RenderInspection prints the construction levels, wiring steps and any
// problems found while inspecting.
func (r *PlanRenderer) RenderInspection(p *usecase.PlanInspection) error {
	plan := p.Plan
	sectionHeaderStyle.Fprintf(r.out, "Plan %s (protocol %s): %d units, %d wiring steps\n",
		plan.Name, plan.Version, len(plan.Units), len(plan.Wiring))

	pending := lo.SliceToMap(p.PendingUnits, func(n string) (string, bool) { return n, true })

	t := newTable(r.out, table.Row{"Level", "Unit", "Kind", "Artifact", "Depends on", "Role"})
	for level, units := range p.Levels {
		for _, u := range units {
			name := nameStyle.Sprint(u.Name)
			if p.Record != nil && !pending[u.Name] {
				name = faintStyle.Sprint(u.Name + " ✓")
			}
			artifact := u.Artifact
			if u.Kind == models.KindExternal {
				artifact = u.Address.Hex()
			}
			deps := strings.Join(lo.Uniq(u.References()), ", ")
			t.AppendRow(table.Row{level, name, kindStyle.Sprint(string(u.Kind)), artifact, faintStyle.Sprint(deps), roleStyle.Sprint(string(u.SubmitterRole()))})
		}
	}
	fmt.Fprintln(r.out)
	t.Render()

	if len(plan.Wiring) > 0 {
		pendingWiring := lo.SliceToMap(p.PendingWiring, func(i int) (int, bool) { return i, true })
		w := newTable(r.out, table.Row{"#", "Step", "Args", "Role", "Description"})
		for _, step := range plan.Wiring {
			label := fmt.Sprintf("%s.%s", step.Target, step.Function)
			if p.Record != nil && !pendingWiring[step.Index] {
				label = faintStyle.Sprint(label + " ✓")
			}
			args := lo.Map(step.Args, func(a models.Arg, _ int) string { return a.String() })
			desc := step.Description
			if len(step.SkipIfSame) == 2 {
				desc = strings.TrimSpace(fmt.Sprintf("%s (skipped when %s == %s)", desc, step.SkipIfSame[0], step.SkipIfSame[1]))
			}
			w.AppendRow(table.Row{step.Index, label, strings.Join(args, ", "), roleStyle.Sprint(string(step.Role)), faintStyle.Sprint(desc)})
		}
		fmt.Fprintln(r.out)
		w.Render()
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "Signing roles:    %s\n", joinRoles(p.SigningRoles))
	fmt.Fprintf(r.out, "Referenced roles: %s\n", joinRoles(p.ReferencedRoles))

	if p.Record != nil {
		fmt.Fprintf(r.out, "Record %s v%d: %d units and %d wiring steps pending\n",
			p.Record.Network, p.Record.Version, len(p.PendingUnits), len(p.PendingWiring))
	}

	if len(p.MissingArtifacts) > 0 {
		names := lo.Keys(p.MissingArtifacts)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("artifact %s: %s", name, p.MissingArtifacts[name])))
		}
	}
	if len(p.MissingSigners) > 0 {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("no signing key for: %s", joinRoles(p.MissingSigners))))
	}
	return nil
}

// RenderValid prints the outcome of plan validate.
func (r *PlanRenderer) RenderValid(p *usecase.PlanInspection, err error) {
	if err != nil {
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("plan %s is not deployable: %v", p.Plan.Name, err)))
		return
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("plan %s is valid (%d units in %d levels, %d wiring steps)",
		p.Plan.Name, len(p.Plan.Units), len(p.Levels), len(p.Plan.Wiring))))
}

func joinRoles(roles []models.Role) string {
	if len(roles) == 0 {
		return faintStyle.Sprint("none")
	}
	return strings.Join(lo.Map(roles, func(r models.Role, _ int) string { return roleStyle.Sprint(string(r)) }), ", ")
}
