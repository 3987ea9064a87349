package models

import (
	"fmt"
	"strings"
)

// Role is a named authorization capability held by one signer.
type Role string

const (
	RoleDeployer       Role = "deployer"
	RoleAdmin          Role = "admin"
	RoleVault          Role = "vault"
	RoleUpgradeManager Role = "upgrade-manager"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleDeployer, RoleAdmin, RoleVault, RoleUpgradeManager}

// ParseRole accepts the canonical role names plus the snake and camel case
// spellings used in environment files.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", "-")

	switch normalized {
	case "deployer":
		return RoleDeployer, nil
	case "admin":
		return RoleAdmin, nil
	case "vault":
		return RoleVault, nil
	case "upgrade-manager", "upgrademanager":
		return RoleUpgradeManager, nil
	default:
		return "", fmt.Errorf("unknown role %q (want one of: deployer, admin, vault, upgrade-manager)", s)
	}
}

// ConfigKey is the key used for the role in config files and env vars.
func (r Role) ConfigKey() string {
	return strings.ReplaceAll(string(r), "-", "_")
}

func (r Role) String() string {
	return string(r)
}
