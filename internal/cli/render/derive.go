package render

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// DeriveRenderer renders counterfactual address derivations
type DeriveRenderer struct {
	out     io.Writer
	verbose bool
}

// NewDeriveRenderer creates a new derive renderer. verbose adds the init
// code and payload.
func NewDeriveRenderer(out io.Writer, verbose bool) *DeriveRenderer {
	return &DeriveRenderer{out: out, verbose: verbose}
}

// RenderDerivation prints the derived address and its inputs.
func (r *DeriveRenderer) RenderDerivation(result *usecase.DerivationResult, err error) error {
	if result == nil {
		return err
	}

	fmt.Fprintf(r.out, "%s %s\n", sectionHeaderStyle.Sprint("Address:"), okStyle.Sprint(result.Address.Hex()))
	fmt.Fprintf(r.out, "  Factory:        %s\n", formatAddress(result.Factory))
	fmt.Fprintf(r.out, "  Beacon:         %s\n", formatAddress(result.Beacon))
	fmt.Fprintf(r.out, "  Requester:      %s\n", formatAddress(result.Requester))
	fmt.Fprintf(r.out, "  Salt (%s): %s\n", result.Strategy, result.Salt.Hex())
	fmt.Fprintf(r.out, "  Init code hash: %s\n", result.InitCodeHash.Hex())

	if r.verbose {
		fmt.Fprintf(r.out, "  Payload:        %s\n", hexutil.Encode(result.Payload))
		fmt.Fprintf(r.out, "  Ctor args:      %s\n", hexutil.Encode(result.CtorArgs))
		fmt.Fprintf(r.out, "  Init code:      %s\n", hexutil.Encode(result.InitCode))
	}

	switch {
	case err != nil:
		fmt.Fprintln(r.out, FormatError(err.Error()))
	case result.Verified:
		fmt.Fprintln(r.out, FormatSuccess("factory reports the same address"))
	}
	return err
}
