package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewUpgradeCmd creates the upgrade command
func NewUpgradeCmd() *cobra.Command {
	var (
		params   usecase.UpgradeParams
		planPath string
		unitName string
		artifact string
		name     string
		ctorArgs []string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Deploy a new wallet implementation and point the beacon at it",
		Long: `Deploy a new implementation and call the beacon owner's upgrade function, then
read the implementation back and compare.

The implementation is either a unit taken from a plan (--plan with --unit) or
an artifact with constructor arguments (--artifact with --arg type=value).
A unit taken from a plan needs --name, since the plan's own unit is already
recorded and sits behind the beacon. An implementation an earlier upgrade
recorded under the same name is reused.

Examples:
  wdeploy upgrade --plan plans/esim-wallet.yaml --unit DeviceWallet --name DeviceWalletV2 -n sepolia
  wdeploy upgrade --artifact DeviceWallet --arg 'address=${EntryPoint}' --arg 'address=${P256Verifier}' -n anvil`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkImplementationFlags(planPath, unitName, artifact, name); err != nil {
				return err
			}
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			switch {
			case planPath != "":
				inspection, err := app.InspectPlan.Run(cmd.Context(), usecase.InspectPlanParams{Path: planPath})
				if err != nil {
					return err
				}
				u, ok := inspection.Plan.Unit(unitName)
				if !ok {
					return fmt.Errorf("%w: %s is not declared in %s", domain.ErrUnknownUnit, unitName, planPath)
				}
				impl := *u
				params.Implementation = &impl
			case artifact != "":
				impl := &models.Unit{Name: artifact, Kind: models.KindContract, Artifact: artifact}
				for _, raw := range ctorArgs {
					typ, value, ok := strings.Cut(raw, "=")
					if !ok {
						return fmt.Errorf("invalid --arg %q (expected type=value)", raw)
					}
					a, err := models.ParseArg(typ, value)
					if err != nil {
						return err
					}
					impl.Args = append(impl.Args, a)
				}
				params.Implementation = impl
			}
			if name != "" {
				params.Implementation.Name = name
			}

			if role != "" {
				if params.Role, err = models.ParseRole(role); err != nil {
					return err
				}
			}

			network := app.Config.Network
			if !network.Devnet && !app.Config.DryRun {
				ok, err := app.Confirmer.Confirm(cmd.Context(),
					fmt.Sprintf("Upgrade %s on %s to %s", targetOrDefault(params.Target), network.Name, params.Implementation.Name))
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrAborted
				}
			}

			result, err := app.UpgradeBeacon.Run(cmd.Context(), params)
			return render.NewUpgradeRenderer(cmd.OutOrStdout()).RenderUpgrade(result, err)
		},
	}

	cmd.Flags().BoolVar(&params.AbandonPending, "abandon-pending", false, "Drop recorded transactions the chain does not know and send them again")
	cmd.Flags().StringVar(&planPath, "plan", "", "Plan file declaring the implementation unit")
	cmd.Flags().StringVar(&unitName, "unit", "", "Implementation unit in --plan")
	cmd.Flags().StringVar(&artifact, "artifact", "", "Implementation artifact")
	cmd.Flags().StringArrayVar(&ctorArgs, "arg", nil, "Constructor argument as type=value (repeatable)")
	cmd.Flags().StringVar(&name, "name", "", "Record name of the new implementation")
	cmd.Flags().StringVar(&params.Target, "target", "", "Beacon owner: unit name, @role or address (default "+usecase.DefaultUpgradeTarget+")")
	cmd.Flags().StringVar(&params.UpgradeFunction, "function", "", "Upgrade function (default "+usecase.DefaultUpgradeFunction+")")
	cmd.Flags().StringVar(&params.Getter, "getter", "", "Implementation getter (default "+usecase.DefaultUpgradeGetter+")")
	cmd.Flags().StringVar(&role, "role", "", "Role that submits the upgrade (default upgrade-manager)")

	return cmd
}

func targetOrDefault(target string) string {
	if target == "" {
		return usecase.DefaultUpgradeTarget
	}
	return target
}

// checkImplementationFlags validates how the implementation is chosen.
func checkImplementationFlags(planPath, unitName, artifact, name string) error {
	switch {
	case planPath != "":
		if unitName == "" {
			return fmt.Errorf("--unit is required with --plan")
		}
		if name == "" {
			return fmt.Errorf("--name is required with --plan: %s is recorded by the plan itself, name the new implementation (e.g. --name %sV2)", unitName, unitName)
		}
	case artifact == "":
		return fmt.Errorf("either --plan with --unit or --artifact is required")
	}
	return nil
}
