package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewDevnetCmd creates the devnet command with subcommands
func NewDevnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet",
		Short: "Manage the local anvil node of a devnet network",
		Long: `Manage a local anvil node for a network marked devnet = true in wdeploy.toml.
The node listens on the port of the network's rpc_url. Without --network the
first devnet in the project is used.`,
	}

	var forkURL string
	start := newDevnetOpCmd("start", "Start the local node", usecase.DevnetStart, &forkURL)
	start.Flags().StringVar(&forkURL, "fork-url", "", "Fork another network at its latest block")
	restart := newDevnetOpCmd("restart", "Restart the local node", usecase.DevnetRestart, &forkURL)
	restart.Flags().StringVar(&forkURL, "fork-url", "", "Fork another network at its latest block")

	cmd.AddCommand(start)
	cmd.AddCommand(restart)
	cmd.AddCommand(newDevnetOpCmd("stop", "Stop the local node", usecase.DevnetStop, nil))
	cmd.AddCommand(newDevnetOpCmd("status", "Show process and RPC status", usecase.DevnetStatus, nil))
	cmd.AddCommand(newDevnetOpCmd("logs", "Print the node log", usecase.DevnetLogs, nil))
	cmd.AddCommand(newDevnetOpCmd("snapshot", "Take an evm_snapshot", usecase.DevnetSnapshot, nil))
	cmd.AddCommand(&cobra.Command{
		Use:          "revert <snapshot-id>",
		Short:        "Revert to an evm_snapshot",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevnetCommand(cmd, usecase.ManageDevnetParams{Operation: usecase.DevnetRevert, SnapshotID: args[0]})
		},
	})

	return cmd
}

func newDevnetOpCmd(use, short string, op usecase.DevnetOperation, forkURL *string) *cobra.Command {
	return &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := usecase.ManageDevnetParams{Operation: op}
			if forkURL != nil {
				params.ForkURL = *forkURL
			}
			if op == usecase.DevnetLogs {
				params.Output = cmd.OutOrStdout()
			}
			return runDevnetCommand(cmd, params)
		},
	}
}

// runDevnetCommand executes a devnet management command
func runDevnetCommand(cmd *cobra.Command, params usecase.ManageDevnetParams) error {
	app, err := getApp(cmd)
	if err != nil {
		return err
	}

	result, err := app.ManageDevnet.Run(cmd.Context(), params)
	if err != nil {
		return err
	}

	return render.NewDevnetRenderer(cmd.OutOrStdout()).Render(result)
}
