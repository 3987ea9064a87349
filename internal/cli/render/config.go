package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// ConfigRenderer renders config-related output
type ConfigRenderer struct {
	out io.Writer
}

// NewConfigRenderer creates a new config renderer
func NewConfigRenderer(out io.Writer) *ConfigRenderer {
	return &ConfigRenderer{
		out: out,
	}
}

// RenderConfig renders the configuration display
func (r *ConfigRenderer) RenderConfig(result *usecase.ShowConfigResult) error {
	if !result.Exists {
		fmt.Fprintf(r.out, "No %s file found\n", getRelativePath(result.ConfigPath))
	} else {
		fmt.Fprintln(r.out, "📋 Current config:")
		for _, key := range config.ValidConfigKeys() {
			value := result.Config.Get(key)
			if value == "" {
				value = faintStyle.Sprint("(not set)")
			}
			fmt.Fprintf(r.out, "  %-17s %s\n", string(key)+":", value)
		}
	}

	network := result.Network
	if network == "" {
		network = faintStyle.Sprint("(none; pass --network)")
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Effective:")
	fmt.Fprintf(r.out, "  %-17s %s\n", "network:", network)
	fmt.Fprintf(r.out, "  %-17s %s\n", "salt_strategy:", result.SaltStrategy)
	fmt.Fprintf(r.out, "  %-17s %s\n", "protocol_version:", result.ProtocolVersion)

	fmt.Fprintf(r.out, "\n📦 Config source: %s\n", result.ConfigSource)
	fmt.Fprintf(r.out, "📁 config file: %s\n", getRelativePath(result.ConfigPath))
	return nil
}

// RenderSet renders the result of setting a configuration value
func (r *ConfigRenderer) RenderSet(result *usecase.SetConfigResult) error {
	if result.Previous != "" && result.Previous != result.Value {
		fmt.Fprintf(r.out, "✅ Set %s to: %s (was %s)\n", result.Key, result.Value, result.Previous)
	} else {
		fmt.Fprintf(r.out, "✅ Set %s to: %s\n", result.Key, result.Value)
	}
	fmt.Fprintf(r.out, "📁 config saved to: %s\n", getRelativePath(result.ConfigPath))
	return nil
}

// RenderRemove renders the result of removing a configuration value
func (r *ConfigRenderer) RenderRemove(result *usecase.RemoveConfigResult) error {
	switch result.Key {
	case config.ConfigKeyNetwork:
		fmt.Fprintf(r.out, "✅ Removed network from config (will be required as flag)\n")
	default:
		fmt.Fprintf(r.out, "✅ Removed %s from config (project default applies)\n", result.Key)
	}

	fmt.Fprintf(r.out, "📁 config saved to: %s\n", getRelativePath(result.ConfigPath))
	return nil
}
