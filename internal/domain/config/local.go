package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LocalConfigFile is the per-checkout config stored under the data dir.
const LocalConfigFile = "config.local.json"

// LocalConfig holds per-checkout defaults. Its JSON keys are viper keys, so
// the file slots in between environment variables and the project file.
type LocalConfig struct {
	Network         string `json:"network,omitempty"`
	SaltStrategy    string `json:"salt_strategy,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// ConfigKey represents a configuration key
type ConfigKey string

const (
	ConfigKeyNetwork         ConfigKey = "network"
	ConfigKeySaltStrategy    ConfigKey = "salt_strategy"
	ConfigKeyProtocolVersion ConfigKey = "protocol_version"
)

// ValidConfigKeys returns all valid configuration keys
func ValidConfigKeys() []ConfigKey {
	return []ConfigKey{
		ConfigKeyNetwork,
		ConfigKeySaltStrategy,
		ConfigKeyProtocolVersion,
	}
}

// NormalizeConfigKey accepts dashed and short spellings ("salt-strategy",
// "salt", "version").
func NormalizeConfigKey(key string) (ConfigKey, bool) {
	key = strings.ReplaceAll(strings.ToLower(key), "-", "_")
	switch key {
	case "salt":
		key = string(ConfigKeySaltStrategy)
	case "version":
		key = string(ConfigKeyProtocolVersion)
	}
	for _, valid := range ValidConfigKeys() {
		if string(valid) == key {
			return valid, true
		}
	}
	return "", false
}

// Get returns the value stored under key.
func (c *LocalConfig) Get(key ConfigKey) string {
	switch key {
	case ConfigKeyNetwork:
		return c.Network
	case ConfigKeySaltStrategy:
		return c.SaltStrategy
	case ConfigKeyProtocolVersion:
		return c.ProtocolVersion
	}
	return ""
}

// Set stores value under key; an empty value clears it.
func (c *LocalConfig) Set(key ConfigKey, value string) {
	switch key {
	case ConfigKeyNetwork:
		c.Network = value
	case ConfigKeySaltStrategy:
		c.SaltStrategy = value
	case ConfigKeyProtocolVersion:
		c.ProtocolVersion = value
	}
}

// DecodeLocalConfig parses a local config file. Viper reads the same file,
// so only the viper spelling of a key is accepted; anything else would be
// ignored there and fall through to the project file.
func DecodeLocalConfig(data []byte) (*LocalConfig, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &LocalConfig{}
	for _, name := range names {
		key, ok := NormalizeConfigKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown config key %q", name)
		}
		if string(key) != name {
			return nil, fmt.Errorf("config key %q must be spelled %q", name, key)
		}
		c.Set(key, strings.TrimSpace(raw[name]))
	}
	return c, nil
}

// Encode renders the set keys under their viper spelling.
func (c *LocalConfig) Encode() ([]byte, error) {
	out := make(map[string]string)
	for _, key := range ValidConfigKeys() {
		if v := c.Get(key); v != "" {
			out[string(key)] = v
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
