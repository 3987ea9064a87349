package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/progress"
	"github.com/trebuchet-org/wallet-deployer/internal/app"
	"github.com/trebuchet-org/wallet-deployer/internal/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var cleanups []func()

	rootCmd := &cobra.Command{
		Use:   "wdeploy",
		Short: "Deterministic deployment of the smart wallet protocol",
		Long: `wdeploy deploys the smart wallet protocol contracts from a declarative plan,
records every unit and wiring step per network, and resumes interrupted runs
from the record.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			appInstance, cleanup, err := app.InitApp(v, progress.NewDeployProgress())
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			cleanups = append(cleanups, cleanup)

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cleanups = append(cleanups, cancel)
			}

			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
			cleanups = nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (e.g., sepolia, anvil)")
	rootCmd.PersistentFlags().String("rpc-url", "", "Override the network's rpc_url")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Parallel unit deployments per dependency level")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Run against an in-memory chain without touching the record")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	for _, c := range []*cobra.Command{NewDeployCmd(), NewPlanCmd(), NewDeriveCmd(), NewUpgradeCmd(), NewShowCmd()} {
		c.GroupID = "main"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{NewFundCmd(), NewDevnetCmd(), NewNetworksCmd(), NewConfigCmd()} {
		c.GroupID = "management"
		rootCmd.AddCommand(c)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}

// requireNetwork fails when no network was selected by flag, env or local config.
func requireNetwork(a *app.App) error {
	if a.Config.Network == nil {
		return fmt.Errorf("no active network set in config, --network flag is required")
	}
	return nil
}
