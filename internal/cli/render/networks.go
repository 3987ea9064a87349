package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out io.Writer
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer) *NetworksRenderer {
	return &NetworksRenderer{
		out: out,
	}
}

// RenderNetworksList renders the list of networks
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in wdeploy.toml [networks]")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	for _, network := range result.Networks {
		marker := "  "
		if network.Selected {
			marker = okStyle.Sprint("▸ ")
		}
		line := fmt.Sprintf("%s - Chain ID: %d", network.Name, network.ChainID)
		if network.Devnet {
			line += faintStyle.Sprint(" (devnet)")
		}
		if network.RPCURL == "" {
			line += faintStyle.Sprint(" [no rpc_url]")
		}

		switch {
		case !network.Checked:
			fmt.Fprintf(r.out, "%s%s\n", marker, line)
		case network.Error != nil:
			fmt.Fprintf(r.out, "%s❌ %s - Error: %v\n", marker, network.Name, network.Error)
		default:
			fmt.Fprintf(r.out, "%s✅ %s\n", marker, line)
		}
	}

	return nil
}
