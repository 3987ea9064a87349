package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
)

// ProjectFileName is the project configuration file looked up from the working directory.
const ProjectFileName = "wdeploy.toml"

// loadEnvFiles loads .env and .env.local so ${VAR} references resolve.
// Variables already present in the environment win.
func loadEnvFiles(projectRoot string) {
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// loadProjectFile loads and parses wdeploy.toml if it exists.
// Returns an empty file when wdeploy.toml does not exist.
func loadProjectFile(projectRoot string) (*config.ProjectFile, error) {
	path := filepath.Join(projectRoot, ProjectFileName)

	cfg := &config.ProjectFile{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFileName, err)
	}

	for name, network := range cfg.Networks {
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		cfg.Networks[name] = network
	}
	for role, value := range cfg.Roles {
		cfg.Roles[role] = os.ExpandEnv(value)
	}
	for i, dir := range cfg.Artifacts.Dirs {
		cfg.Artifacts.Dirs[i] = os.ExpandEnv(dir)
	}
	cfg.Gas.FeeCap = os.ExpandEnv(cfg.Gas.FeeCap)
	cfg.Gas.TipCap = os.ExpandEnv(cfg.Gas.TipCap)

	return cfg, nil
}
