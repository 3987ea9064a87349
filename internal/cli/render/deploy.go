package render

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// DeployRenderer renders plan runs
type DeployRenderer struct {
	out io.Writer
}

// NewDeployRenderer creates a new deploy renderer
func NewDeployRenderer(out io.Writer) *DeployRenderer {
	return &DeployRenderer{out: out}
}

// RenderDeploy prints the deployment summary. plan may be nil.
func (r *DeployRenderer) RenderDeploy(plan *domain.Plan, result *usecase.DeployResult, dryRun bool) error {
	if result == nil || result.Record == nil {
		return nil
	}

	fmt.Fprintln(r.out)
	header := fmt.Sprintf("Deployment summary: %s (chain %d, record v%d)", result.Record.Network, result.Record.ChainID, result.Record.Version)
	if dryRun {
		header += " [dry run]"
	}
	sectionHeaderStyle.Fprintln(r.out, header)

	if len(result.RoleBalances) > 0 {
		r.renderBalances(result.RoleBalances)
	}

	r.renderUnits(plan, result)
	renderWiring(r.out, plan, result.Record)

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s deployed, %s already recorded, %s wiring steps applied, %s skipped\n",
		okStyle.Sprint(len(result.Deployed)),
		faintStyle.Sprint(len(result.Skipped)),
		okStyle.Sprint(len(result.WiringApplied)),
		faintStyle.Sprint(len(result.WiringSkipped)))

	if len(result.Settled) > 0 {
		fmt.Fprintf(r.out, "%s pending from an earlier run confirmed: %s\n", okStyle.Sprint(len(result.Settled)), strings.Join(result.Settled, ", "))
	}

	if len(result.Unverified) > 0 {
		names := lo.Keys(result.Unverified)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%s not verified: %s", name, result.Unverified[name])))
		}
	}
	return nil
}

// RenderFailure explains where a failed run stopped and how to resume it.
func (r *DeployRenderer) RenderFailure(plan *domain.Plan, err error) {
	var txErr *domain.TransactionFailureError
	if !errors.As(err, &txErr) {
		return
	}

	fmt.Fprintln(r.out)
	switch txErr.Phase {
	case domain.PhaseWiring:
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("wiring step %d (%s) failed; earlier steps are recorded", txErr.Index, txErr.Name)))
	default:
		fmt.Fprintln(r.out, FormatError(fmt.Sprintf("%s of %s failed; completed units are recorded", txErr.Phase, txErr.Name)))
	}
	if txErr.TxHash != (common.Hash{}) && !errors.Is(err, domain.ErrTransactionReverted) {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("tx %s was sent but not seen confirmed; the next run looks it up before sending anything", txErr.TxHash.Hex())))
	}
	if txErr.Record != nil {
		r.renderUnits(plan, &usecase.DeployResult{Record: txErr.Record})
		renderWiring(r.out, plan, txErr.Record)
	}
	fmt.Fprintln(r.out, faintStyle.Sprint("Re-run the same command to resume from the record."))
}

func (r *DeployRenderer) renderBalances(balances map[models.Role]*big.Int) {
	t := newTable(r.out, table.Row{"Role", "Balance"})
	for _, role := range models.Roles {
		if b, ok := balances[role]; ok {
			t.AppendRow(table.Row{roleStyle.Sprint(title(string(role))), formatEther(b)})
		}
	}
	fmt.Fprintln(r.out)
	t.Render()
}

func (r *DeployRenderer) renderUnits(plan *domain.Plan, result *usecase.DeployResult) {
	record := result.Record
	deployed := lo.SliceToMap(result.Deployed, func(n string) (string, bool) { return n, true })

	t := newTable(r.out, table.Row{"Unit", "Kind", "Address", "Implementation", "Status"})
	for _, name := range unitOrder(plan, record) {
		u, ok := record.Unit(name)
		if !ok {
			t.AppendRow(table.Row{nameStyle.Sprint(name), "", faintStyle.Sprint("-"), "", pendingStyle.Sprint("PENDING")})
			continue
		}
		impl := faintStyle.Sprint("-")
		if ir, ok := record.Unit(name + "Implementation"); ok && ir.Parent == name {
			impl = formatAddress(ir.Address)
		}
		// units recorded by an earlier run are dimmed
		status := okStyle.Sprint(string(u.Status))
		switch {
		case u.Pending():
			status = pendingStyle.Sprint(string(u.Status))
		case result.Deployed != nil && !deployed[name]:
			status = faintStyle.Sprint(string(u.Status))
		}
		t.AppendRow(table.Row{nameStyle.Sprint(name), kindStyle.Sprint(string(u.Kind)), formatAddress(u.Address), impl, status})
	}
	fmt.Fprintln(r.out)
	t.Render()
}

// unitOrder lists plan units in declared order, then anything else the
// record holds that is not an implementation.
func unitOrder(plan *domain.Plan, record *models.DeploymentRecord) []string {
	var names []string
	seen := make(map[string]bool)
	if plan != nil {
		for _, u := range plan.Units {
			names = append(names, u.Name)
			seen[u.Name] = true
		}
	}
	for _, name := range record.Order {
		if seen[name] || record.Units[name].Parent != "" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func renderWiring(out io.Writer, plan *domain.Plan, record *models.DeploymentRecord) {
	steps := len(record.Wiring)
	if plan != nil && len(plan.Wiring) > steps {
		steps = len(plan.Wiring)
	}
	if steps == 0 {
		return
	}

	t := newTable(out, table.Row{"#", "Step", "Role", "Status", "Tx"})
	for i := 0; i < steps; i++ {
		if w, ok := record.WiringStep(i); ok {
			status := okStyle.Sprint(string(w.Status))
			if w.Status == models.WiringSkipped {
				status = faintStyle.Sprint(string(w.Status))
			}
			t.AppendRow(table.Row{i, fmt.Sprintf("%s.%s", w.Target, w.Function), roleStyle.Sprint(string(w.Role)), status, formatHash(w.TxHash)})
			continue
		}
		if plan == nil || i >= len(plan.Wiring) {
			continue
		}
		step := plan.Wiring[i]
		t.AppendRow(table.Row{i, fmt.Sprintf("%s.%s", step.Target, step.Function), roleStyle.Sprint(string(step.Role)), pendingStyle.Sprint("PENDING"), ""})
	}
	fmt.Fprintln(out)
	t.Render()
}
