package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "show [unit]",
		Short: "Show the deployment record of the selected network",
		Long: `Show every recorded unit, wiring step and upgrade of the selected network, or
the details of one unit. Unknown names suggest close matches; --pick selects a
unit interactively.

Examples:
  wdeploy show -n sepolia
  wdeploy show DeviceWalletFactory -n sepolia
  wdeploy show --pick -n sepolia`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			params := usecase.ShowRecordParams{}
			if len(args) == 1 {
				params.Unit = args[0]
			}
			params.Pick = pick

			result, err := app.ShowRecord.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			return render.NewRecordRenderer(cmd.OutOrStdout()).RenderRecord(result)
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "Select a unit interactively")

	return cmd
}
