package simnet

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// State keys used by the reference behaviours.
const (
	KeyImplementation     = "implementation"
	KeyRegistry           = "registry"
	KeyLazyWalletRegistry = "lazyWalletRegistry"
	KeyVault              = "vault"
)

// WalletFactory behaves like the device wallet factory: it owns a beacon,
// rolls its implementation forward and predicts CREATE2 wallet addresses.
// The prediction is computed here directly from go-ethereum primitives.
type WalletFactory struct {
	Beacon           common.Address
	Implementation   common.Address
	Registry         common.Address
	SecondaryFactory common.Address
	ProxyCode        []byte
	Version          models.ProtocolVersion
	// UpgradeManager, when set, is the only sender allowed to upgrade.
	UpgradeManager common.Address
	// IgnoreUpgrades accepts upgrade calls without applying them.
	IgnoreUpgrades bool
}

// Install implements Installer.
func (f *WalletFactory) Install(c *Contract) error {
	c.Set(KeyImplementation, f.Implementation)
	c.Set(KeyRegistry, f.Registry)

	c.View("beacon()", "address", func(*Call) ([]any, error) {
		return []any{f.Beacon}, nil
	})
	c.View("getCurrentDeviceWalletImplementation()", "address", func(call *Call) ([]any, error) {
		return []any{call.Contract.AddressOf(KeyImplementation)}, nil
	})
	c.Tx("updateDeviceWalletImplementation(address)", func(call *Call) ([]any, error) {
		if f.UpgradeManager != (common.Address{}) && call.From != f.UpgradeManager {
			return nil, fmt.Errorf("sender %s is not the upgrade manager", call.From.Hex())
		}
		impl := call.Args[0].(common.Address)
		if impl == (common.Address{}) {
			return nil, errors.New("implementation is the zero address")
		}
		if !f.IgnoreUpgrades {
			call.Contract.Set(KeyImplementation, impl)
		}
		return nil, nil
	})
	c.View("getCounterfactualAddress(bytes32[2],string,uint256)", "address", func(call *Call) ([]any, error) {
		ownerKey := call.Args[0].([2][32]byte)
		deviceID := call.Args[1].(string)
		salt := call.Args[2].(*big.Int)
		addr, err := f.counterfactual(call.Contract.Address, call.Contract.AddressOf(KeyRegistry), ownerKey, deviceID, salt)
		if err != nil {
			return nil, err
		}
		return []any{addr}, nil
	})
	// The registry must already point back at a lazy wallet registry.
	c.Tx("addRegistryAddress(address)", func(call *Call) ([]any, error) {
		registry := call.Args[0].(common.Address)
		target, ok := call.Net.At(registry)
		if !ok {
			return nil, fmt.Errorf("registry %s has no code", registry.Hex())
		}
		if target.AddressOf(KeyLazyWalletRegistry) == (common.Address{}) {
			return nil, errors.New("registry has no lazy wallet registry")
		}
		call.Contract.Set(KeyRegistry, registry)
		return nil, nil
	})
	return nil
}

func (f *WalletFactory) counterfactual(factory, registry common.Address, ownerKey [2][32]byte, deviceID string, salt *big.Int) (common.Address, error) {
	addressT, _ := abi.NewType("address", "", nil)
	keyT, _ := abi.NewType("bytes32[2]", "", nil)
	stringT, _ := abi.NewType("string", "", nil)
	bytesT, _ := abi.NewType("bytes", "", nil)

	sig := "init(address,bytes32[2],string)"
	initArgs := abi.Arguments{{Type: addressT}, {Type: keyT}, {Type: stringT}}
	values := []any{registry, ownerKey, deviceID}
	if f.Version == models.ProtocolV2 {
		sig = "init(address,bytes32[2],string,address)"
		initArgs = append(initArgs, abi.Argument{Type: addressT})
		values = append(values, f.SecondaryFactory)
	}
	packed, err := initArgs.Pack(values...)
	if err != nil {
		return common.Address{}, err
	}
	payload := append(crypto.Keccak256([]byte(sig))[:4], packed...)

	ctor, err := abi.Arguments{{Type: addressT}, {Type: bytesT}}.Pack(f.Beacon, payload)
	if err != nil {
		return common.Address{}, err
	}
	initCode := append(append([]byte(nil), f.ProxyCode...), ctor...)
	return crypto.CreateAddress2(factory, common.BigToHash(salt), crypto.Keccak256(initCode)), nil
}

// Registry behaves like the wallet registry's admin surface.
type Registry struct {
	// Admin, when set, is the only sender allowed to wire the registry.
	Admin common.Address
}

// Install implements Installer.
func (r *Registry) Install(c *Contract) error {
	c.Tx("addOrUpdateLazyWalletRegistryAddress(address)", func(call *Call) ([]any, error) {
		if r.Admin != (common.Address{}) && call.From != r.Admin {
			return nil, fmt.Errorf("sender %s is not the registry admin", call.From.Hex())
		}
		call.Contract.Set(KeyLazyWalletRegistry, call.Args[0].(common.Address))
		return nil, nil
	})
	c.View("lazyWalletRegistry()", "address", func(call *Call) ([]any, error) {
		return []any{call.Contract.AddressOf(KeyLazyWalletRegistry)}, nil
	})
	c.Tx("setVault(address)", func(call *Call) ([]any, error) {
		call.Contract.Set(KeyVault, call.Args[0].(common.Address))
		return nil, nil
	})
	return nil
}
