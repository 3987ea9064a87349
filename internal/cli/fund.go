package cli

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewFundCmd creates the fund command
func NewFundCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "fund [role...]",
		Short: "Set role balances on a devnet",
		Long: `Set the balance of the given roles (default: every configured role) using
anvil_setBalance. Only networks marked devnet = true are accepted.

Examples:
  wdeploy fund -n anvil
  wdeploy fund deployer upgrade-manager --amount 50 -n anvil`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := requireNetwork(app); err != nil {
				return err
			}

			wei, err := parseEther(amount)
			if err != nil {
				return err
			}
			p := usecase.FundRoleParams{Amount: wei}
			for _, arg := range args {
				role, err := models.ParseRole(arg)
				if err != nil {
					return err
				}
				p.Roles = append(p.Roles, role)
			}

			funded, err := app.FundRole.Run(cmd.Context(), p)
			if err != nil {
				return err
			}
			return render.RenderFunded(cmd.OutOrStdout(), app.Config.Network.Name, funded)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "100", "Balance to set, in ether")

	return cmd
}

// parseEther converts a decimal ether amount to wei.
func parseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok || r.Sign() <= 0 {
		return nil, fmt.Errorf("invalid --amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(big.NewInt(params.Ether)))
	if !r.IsInt() {
		return nil, fmt.Errorf("--amount %q has more precision than wei", s)
	}
	return new(big.Int).Set(r.Num()), nil
}
