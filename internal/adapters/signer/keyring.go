package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/wallet-deployer/internal/adapters/network"
	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

type identity struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// Keyring maps roles to configured key material. A role value is either a
// hex private key or, for roles that never sign, a plain address.
type Keyring struct {
	identities map[models.Role]identity
	// simulate lets address-only roles sign on simulated networks.
	simulate bool
}

// NewKeyring parses the role table of the runtime configuration.
func NewKeyring(cfg *config.RuntimeConfig) (*Keyring, error) {
	k := &Keyring{
		identities: make(map[models.Role]identity),
		simulate:   cfg.DryRun,
	}
	for role, value := range cfg.Roles {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := parseIdentity(value)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		k.identities[role] = id
	}
	return k, nil
}

func parseIdentity(value string) (identity, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X")
	switch len(hex) {
	case 2 * common.AddressLength:
		if !common.IsHexAddress(value) {
			return identity{}, fmt.Errorf("%w: not a hex address", domain.ErrInvalidPrivateKey)
		}
		return identity{address: common.HexToAddress(value)}, nil
	case 64:
		key, err := crypto.HexToECDSA(hex)
		if err != nil {
			return identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrivateKey, err)
		}
		return identity{address: crypto.PubkeyToAddress(key.PublicKey), key: key}, nil
	default:
		return identity{}, fmt.Errorf("%w: expected a 32-byte key or a 20-byte address", domain.ErrInvalidPrivateKey)
	}
}

func (k *Keyring) Address(role models.Role) (common.Address, error) {
	id, ok := k.identities[role]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s (set [roles].%s in wdeploy.toml)", domain.ErrMissingSigner, role, role.ConfigKey())
	}
	if id.address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", domain.ErrRoleZeroAddress, role)
	}
	return id.address, nil
}

func (k *Keyring) CanSign(role models.Role) bool {
	id, ok := k.identities[role]
	if !ok || id.address == (common.Address{}) {
		return false
	}
	return id.key != nil || k.simulate
}

func (k *Keyring) Roles() []models.Role {
	var out []models.Role
	for _, r := range models.Roles {
		if _, ok := k.identities[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// PrivateKey returns the signing key of a role.
func (k *Keyring) PrivateKey(role models.Role) (*ecdsa.PrivateKey, error) {
	if _, err := k.Address(role); err != nil {
		return nil, err
	}
	id := k.identities[role]
	if id.key == nil {
		return nil, fmt.Errorf("%w: %s is configured with an address only", domain.ErrMissingSigner, role)
	}
	return id.key, nil
}

// Ensure the adapter implements the interfaces
var (
	_ usecase.SignerSet = (*Keyring)(nil)
	_ network.KeySource = (*Keyring)(nil)
)
