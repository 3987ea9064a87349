package cli

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/cli/render"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// NewDeriveCmd creates the derive command
func NewDeriveCmd() *cobra.Command {
	var (
		params  usecase.DeriveAddressParams
		ownerX  string
		ownerY  string
		nonce   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Compute a device wallet address before it is deployed",
		Long: `Compute the CREATE2 address a factory will assign to a device wallet.

Address flags accept a hex address, an @role or a unit name from the selected
network's record. Without --beacon the beacon is read from the factory.
--salt-strategy and --protocol-version default to the project configuration.

Examples:
  wdeploy derive --owner-x 0x.. --owner-y 0x.. --device-id dev-1 --nonce 0 --network anvil
  wdeploy derive --factory 0x.. --beacon 0x.. --registry 0x.. --requester 0x.. \
    --owner-x 0x.. --owner-y 0x.. --device-id dev-1 --nonce 7 --salt-strategy padded
  wdeploy derive ... --verify`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if params.OwnerKey[0], err = parseWord("owner-x", ownerX); err != nil {
				return err
			}
			if params.OwnerKey[1], err = parseWord("owner-y", ownerY); err != nil {
				return err
			}
			n, ok := new(big.Int).SetString(nonce, 0)
			if !ok || n.Sign() < 0 {
				return fmt.Errorf("invalid --nonce %q", nonce)
			}
			params.Nonce = n

			result, err := app.DeriveAddress.Run(cmd.Context(), params)
			return render.NewDeriveRenderer(cmd.OutOrStdout(), verbose).RenderDerivation(result, err)
		},
	}

	cmd.Flags().StringVar(&params.Factory, "factory", "", "Device wallet factory (default DeviceWalletFactory)")
	cmd.Flags().StringVar(&params.Beacon, "beacon", "", "Beacon address (default: read beacon() from the factory)")
	cmd.Flags().StringVar(&params.Registry, "registry", "", "Registry encoded in the init payload (default Registry)")
	cmd.Flags().StringVar(&params.SecondaryFactory, "secondary-factory", "", "eSIM wallet factory for v2 payloads (default ESIMWalletFactory)")
	cmd.Flags().StringVar(&params.Requester, "requester", "", "Account that calls the factory (default @admin)")
	cmd.Flags().StringVar(&params.DeviceID, "device-id", "", "Device unique identifier")
	cmd.Flags().StringVar(&params.ProxyArtifact, "proxy-artifact", "", "Beacon proxy artifact (default from [artifacts])")
	cmd.Flags().StringVar(&ownerX, "owner-x", "", "Owner P-256 public key X coordinate (32 bytes hex)")
	cmd.Flags().StringVar(&ownerY, "owner-y", "", "Owner P-256 public key Y coordinate (32 bytes hex)")
	cmd.Flags().StringVar(&nonce, "nonce", "0", "Salt nonce")
	cmd.Flags().String("salt-strategy", "", "Salt strategy: hashed or padded")
	cmd.Flags().String("protocol-version", "", "Init payload version: v1 or v2")
	cmd.Flags().BoolVar(&params.Verify, "verify", false, "Ask the factory for its own answer and compare")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print payload, constructor arguments and init code")

	return cmd
}

// parseWord reads a 32-byte hex value, left-padding shorter input.
func parseWord(flag, s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, fmt.Errorf("--%s is required", flag)
	}
	b := common.FromHex(s)
	if len(b) > 32 {
		return out, fmt.Errorf("--%s is longer than 32 bytes", flag)
	}
	copy(out[32-len(b):], b)
	return out, nil
}
