package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// UpgradeRenderer renders beacon upgrades
type UpgradeRenderer struct {
	out io.Writer
}

// NewUpgradeRenderer creates a new upgrade renderer
func NewUpgradeRenderer(out io.Writer) *UpgradeRenderer {
	return &UpgradeRenderer{out: out}
}

// RenderUpgrade prints the state history and the addresses involved. A
// verification failure still carries a result, so both are rendered.
func (r *UpgradeRenderer) RenderUpgrade(result *models.UpgradeResult, err error) error {
	if result == nil {
		return err
	}

	history := lo.Map(result.History, func(s models.UpgradeState, _ int) string { return string(s) })
	fmt.Fprintf(r.out, "%s %s\n", sectionHeaderStyle.Sprint("Upgrade:"), strings.Join(history, " → "))
	fmt.Fprintf(r.out, "  Target:         %s\n", formatAddress(result.Target))
	fmt.Fprintf(r.out, "  Previous:       %s\n", formatAddress(result.Previous))

	impl := formatAddress(result.Implementation)
	if result.ImplementationReused {
		impl += faintStyle.Sprint(" (from record)")
	}
	fmt.Fprintf(r.out, "  Implementation: %s\n", impl)
	fmt.Fprintf(r.out, "  Reported:       %s\n", formatAddress(result.Reported))
	if result.Submitted {
		fmt.Fprintf(r.out, "  Tx:             %s\n", formatHash(result.TxHash))
	}

	switch {
	case result.State == models.UpgradeVerified && !result.Submitted:
		fmt.Fprintln(r.out, FormatSuccess("target already uses this implementation; nothing submitted"))
	case result.State == models.UpgradeVerified:
		fmt.Fprintln(r.out, FormatSuccess("upgrade verified"))
	case err != nil:
		fmt.Fprintln(r.out, FormatError(err.Error()))
	}
	return err
}
