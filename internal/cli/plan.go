package cli

import (
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewPlanCmd creates the plan command group
func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect deployment plans",
	}

	cmd.AddCommand(newPlanShowCmd())
	cmd.AddCommand(newPlanValidateCmd())

	return cmd
}

func newPlanShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan>",
		Short: "Show deployment levels, wiring and roles of a plan",
		Long: `Show how a plan will be deployed: units grouped in dependency levels, the
ordered wiring steps and the roles involved. With --network, units and steps
not yet in the network's record are listed as pending.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			inspection, err := app.InspectPlan.Run(cmd.Context(), usecase.InspectPlanParams{
				Path:       args[0],
				WithRecord: app.Config.Network != nil,
			})
			if err != nil {
				return err
			}

			return render.NewPlanRenderer(cmd.OutOrStdout()).RenderInspection(inspection)
		},
	}
}

func newPlanValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan>",
		Short: "Check that a plan parses, its artifacts exist and its roles can sign",
		Args:  cobra.ExactArgs(1),
		// Validation failures are reported, not echoed with usage.
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			inspection, err := app.InspectPlan.Run(cmd.Context(), usecase.InspectPlanParams{
				Path:           args[0],
				CheckArtifacts: true,
			})
			if err != nil {
				return err
			}

			err = inspection.Valid()
			render.NewPlanRenderer(cmd.OutOrStdout()).RenderValid(inspection, err)
			return err
		},
	}
}
