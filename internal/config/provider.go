package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/create2"
)

// RuntimeConfig is re-exported so callers only import this package.
type RuntimeConfig = config.RuntimeConfig

const (
	defaultArtifactsDir = "artifacts"
	defaultAddressBook  = "deployments/address.json"
	dataDirName         = ".wdeploy"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)
	project, err := loadProjectFile(projectRoot)
	if err != nil {
		return nil, err
	}
	applyProjectDefaults(v, project)

	cfg := &RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, dataDirName),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		Timeout:        v.GetDuration("timeout"),
		DryRun:         v.GetBool("dry_run"),
		Concurrency:    v.GetInt("concurrency"),
		ConfirmTimeout: v.GetDuration("confirm_timeout"),
		PollInterval:   v.GetDuration("poll_interval"),
		Roles:          make(map[models.Role]string),
		Artifacts: config.ArtifactsConfig{
			Dirs:        resolveDirs(projectRoot, project.Artifacts.Dirs),
			BeaconProxy: project.Artifacts.BeaconProxy,
		},
		AddressBook:  absPath(projectRoot, v.GetString("address_book")),
		ConfigSource: ProjectFileName,
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}

	strategy, err := create2.ParseSaltStrategy(v.GetString("salt_strategy"))
	if err != nil {
		return nil, err
	}
	cfg.SaltStrategy = string(strategy)

	cfg.ProtocolVersion, err = models.ParseProtocolVersion(v.GetString("protocol_version"))
	if err != nil {
		return nil, err
	}

	for key, value := range project.Roles {
		role, err := models.ParseRole(key)
		if err != nil {
			return nil, fmt.Errorf("[roles] in %s: %w", ProjectFileName, err)
		}
		cfg.Roles[role] = value
	}
	// WDEPLOY_ROLE_<ROLE> overrides the project file.
	for _, role := range models.Roles {
		if value := os.Getenv("WDEPLOY_ROLE_" + strings.ToUpper(role.ConfigKey())); value != "" {
			cfg.Roles[role] = value
		}
	}

	if cfg.Gas.FeeCap, err = parseWei("gas.fee_cap", project.Gas.FeeCap); err != nil {
		return nil, err
	}
	if cfg.Gas.TipCap, err = parseWei("gas.tip_cap", project.Gas.TipCap); err != nil {
		return nil, err
	}

	resolver := NewNetworkResolver(project)
	for _, name := range resolver.Names() {
		cfg.KnownNetworks = append(cfg.KnownNetworks, resolver.networks[name])
	}

	if networkName := v.GetString("network"); networkName != "" {
		network, err := resolver.Resolve(networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		if rpcURL := v.GetString("rpc_url"); rpcURL != "" {
			network.RPCURL = rpcURL
		}
		cfg.Network = network
	}

	return cfg, nil
}

// applyProjectDefaults layers the [deploy] table between built-in defaults
// and flags or environment variables.
func applyProjectDefaults(v *viper.Viper, project *config.ProjectFile) {
	d := project.Deploy
	if d.Concurrency != 0 {
		v.SetDefault("concurrency", d.Concurrency)
	}
	if d.ConfirmTimeout != "" {
		v.SetDefault("confirm_timeout", d.ConfirmTimeout)
	}
	if d.PollInterval != "" {
		v.SetDefault("poll_interval", d.PollInterval)
	}
	if d.SaltStrategy != "" {
		v.SetDefault("salt_strategy", d.SaltStrategy)
	}
	if d.ProtocolVersion != "" {
		v.SetDefault("protocol_version", d.ProtocolVersion)
	}
	if d.AddressBook != "" {
		v.SetDefault("address_book", d.AddressBook)
	}
}

func parseWei(key, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	wei, ok := new(big.Int).SetString(value, 10)
	if !ok || wei.Sign() < 0 {
		return nil, fmt.Errorf("%s: invalid wei amount %q", key, value)
	}
	return wei, nil
}

func resolveDirs(projectRoot string, dirs []string) []string {
	if len(dirs) == 0 {
		dirs = []string{defaultArtifactsDir}
	}
	out := make([]string, len(dirs))
	for i, dir := range dirs {
		out[i] = absPath(projectRoot, dir)
	}
	return out
}

func absPath(projectRoot, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

// FindProjectRoot walks up from current directory to find wdeploy.toml.
// Without one the working directory is the project root.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectFileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// .wdeploy/config.local.json sits between env vars and the project file
	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, dataDirName))

	v.SetEnvPrefix("WDEPLOY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", 10*time.Minute)
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("concurrency", 4)
	v.SetDefault("confirm_timeout", 2*time.Minute)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("salt_strategy", string(create2.SaltHashed))
	v.SetDefault("protocol_version", string(models.ProtocolV2))
	v.SetDefault("address_book", defaultAddressBook)
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	})

	return v
}
