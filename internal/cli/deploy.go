package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	var verify, abandonPending bool

	cmd := &cobra.Command{
		Use:   "deploy <plan>",
		Short: "Deploy a plan to the selected network",
		Long: `Deploy every unit of a plan in dependency order, then apply its wiring steps.

Units and wiring steps already present in the network's record are skipped,
so an interrupted run resumes where it stopped. Transactions a previous run
sent but did not see confirmed are looked up first; one the chain does not
know stops the run unless --abandon-pending is set. Live networks ask for
confirmation unless --non-interactive is set.

Examples:
  wdeploy deploy plans/esim-wallet.yaml --network anvil
  wdeploy deploy plans/esim-wallet.yaml --network sepolia --verify
  wdeploy deploy plans/esim-wallet.yaml --network sepolia --dry-run`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			inspection, err := app.InspectPlan.Run(cmd.Context(), usecase.InspectPlanParams{Path: args[0]})
			if err != nil {
				return err
			}
			plan := inspection.Plan

			network := app.Config.Network
			if !network.Devnet && !app.Config.DryRun {
				ok, err := app.Confirmer.Confirm(cmd.Context(),
					fmt.Sprintf("Deploy %s to %s (chain %d)", plan.Name, network.Name, network.ChainID))
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrAborted
				}
			}

			result, err := app.DeployPlan.Run(cmd.Context(), usecase.DeployParams{
				Plan:           plan,
				Verify:         verify,
				AbandonPending: abandonPending,
			})

			renderer := render.NewDeployRenderer(cmd.OutOrStdout())
			if err != nil {
				renderer.RenderFailure(plan, err)
				return err
			}
			return renderer.RenderDeploy(plan, result, app.Config.DryRun)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check on-chain code of every recorded unit after wiring")
	cmd.Flags().BoolVar(&abandonPending, "abandon-pending", false, "Drop recorded transactions the chain does not know and send them again")

	return cmd
}
