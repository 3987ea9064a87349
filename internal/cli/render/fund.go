package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// RenderFunded prints role balances before and after a devnet top-up.
func RenderFunded(out io.Writer, network string, funded []usecase.FundedRole) error {
	t := newTable(out, table.Row{"Role", "Address", "Before", "After"})
	for _, f := range funded {
		t.AppendRow(table.Row{roleStyle.Sprint(title(string(f.Role))), formatAddress(f.Address), faintStyle.Sprint(formatEther(f.Before)), okStyle.Sprint(formatEther(f.After))})
	}
	t.Render()
	fmt.Fprintln(out, FormatSuccess(fmt.Sprintf("funded %d roles on %s", len(funded), network)))
	return nil
}
