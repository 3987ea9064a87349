package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// RecordRenderer renders deployment records
type RecordRenderer struct {
	out io.Writer
}

// NewRecordRenderer creates a new record renderer
func NewRecordRenderer(out io.Writer) *RecordRenderer {
	return &RecordRenderer{out: out}
}

// RenderRecord prints either one unit or the whole record.
func (r *RecordRenderer) RenderRecord(result *usecase.ShowRecordResult) error {
	record := result.Record
	if result.Unit == nil {
		if len(record.Units) == 0 && len(record.Wiring) == 0 && len(record.Upgrades) == 0 {
			fmt.Fprintf(r.out, "No deployments recorded for %s\n", record.Network)
			return nil
		}
		sectionHeaderStyle.Fprintf(r.out, "Deployment record: %s (chain %d, v%d)\n", record.Network, record.ChainID, record.Version)
		(&DeployRenderer{out: r.out}).renderUnits(nil, &usecase.DeployResult{Record: record})
		renderWiring(r.out, nil, record)
		r.renderUpgrades(result)
		return nil
	}

	u := result.Unit
	sectionHeaderStyle.Fprintln(r.out, u.Name)
	fmt.Fprintf(r.out, "  Kind:     %s\n", kindStyle.Sprint(string(u.Kind)))
	if u.Artifact != "" {
		fmt.Fprintf(r.out, "  Artifact: %s\n", u.Artifact)
	}
	fmt.Fprintf(r.out, "  Address:  %s\n", formatAddress(u.Address))
	if result.Implementation != nil {
		fmt.Fprintf(r.out, "  Implementation: %s\n", formatAddress(result.Implementation.Address))
	}
	if u.Parent != "" {
		fmt.Fprintf(r.out, "  Proxy:    %s\n", u.Parent)
	}
	if u.Role != "" {
		fmt.Fprintf(r.out, "  Role:     %s (%s)\n", roleStyle.Sprint(string(u.Role)), formatAddress(u.Deployer))
	}
	fmt.Fprintf(r.out, "  Tx:       %s\n", formatHash(u.TxHash))
	if u.BlockNumber > 0 {
		fmt.Fprintf(r.out, "  Block:    %d\n", u.BlockNumber)
	}
	fmt.Fprintf(r.out, "  Status:   %s\n", okStyle.Sprint(string(u.Status)))

	if len(result.Wiring) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "  Wiring:")
		for _, w := range result.Wiring {
			fmt.Fprintf(r.out, "    %d. %s.%s by %s %s\n", w.Index, w.Target, w.Function, roleStyle.Sprint(string(w.Role)), faintStyle.Sprint(string(w.Status)))
		}
	}
	r.renderUpgrades(result)
	return nil
}

func (r *RecordRenderer) renderUpgrades(result *usecase.ShowRecordResult) {
	upgrades := result.Upgrades
	if result.Unit == nil {
		upgrades = result.Record.Upgrades
	}
	if len(upgrades) == 0 {
		return
	}

	t := newTable(r.out, table.Row{"Target", "Function", "Previous", "Implementation", "State"})
	for _, u := range upgrades {
		state := okStyle.Sprint(string(u.State))
		if u.Implementation != u.Reported {
			state = failStyle.Sprint(string(u.State))
		}
		t.AppendRow(table.Row{nameStyle.Sprint(u.Target), u.Function, formatAddress(u.Previous), formatAddress(u.Implementation), state})
	}
	fmt.Fprintln(r.out)
	t.Render()
}
