package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
	"github.com/trebuchet-org/wallet-deployer/pkg/create2"
)

const (
	DefaultDeriveFactory          = "DeviceWalletFactory"
	DefaultDeriveRegistry         = "Registry"
	DefaultDeriveSecondaryFactory = "ESIMWalletFactory"
	DefaultDeriveRequester        = "@admin"
	DefaultBeaconProxyArtifact    = "BeaconProxy"

	beaconGetter         = "beacon()"
	counterfactualGetter = "getCounterfactualAddress(bytes32[2],string,uint256)"
)

// DeriveAddressParams contains parameters for computing a wallet address
// before it exists. Address-like fields accept a hex address, an @role or
// a recorded unit name.
type DeriveAddressParams struct {
	Factory          string
	Beacon           string // empty reads beacon() from the factory
	Registry         string
	SecondaryFactory string
	OwnerKey         [2][32]byte
	DeviceID         string
	Nonce            *big.Int
	Requester        string
	Strategy         create2.SaltStrategy
	Version          models.ProtocolVersion
	ProxyArtifact    string
	// Verify asks the factory for its own answer and compares.
	Verify bool
}

// DerivationResult contains every intermediate of a derivation
type DerivationResult struct {
	Address      common.Address
	Factory      common.Address
	Beacon       common.Address
	Requester    common.Address
	Salt         common.Hash
	Strategy     create2.SaltStrategy
	Payload      []byte
	CtorArgs     []byte
	InitCode     []byte
	InitCodeHash common.Hash
	Verified     bool
	OnChain      common.Address
}

// DeriveAddress computes counterfactual wallet addresses.
type DeriveAddress struct {
	cfg       *config.RuntimeConfig
	network   Network
	signers   SignerSet
	records   RecordStore
	artifacts ArtifactStore
	log       *slog.Logger
}

// NewDeriveAddress creates a new DeriveAddress use case
func NewDeriveAddress(
	cfg *config.RuntimeConfig,
	network Network,
	signers SignerSet,
	records RecordStore,
	artifacts ArtifactStore,
	log *slog.Logger,
) *DeriveAddress {
	return &DeriveAddress{
		cfg:       cfg,
		network:   network,
		signers:   signers,
		records:   records,
		artifacts: artifacts,
		log:       log,
	}
}

// EncodeInitPayload encodes the wallet initializer call for p's version.
func EncodeInitPayload(p models.InitPayload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return abicodec.EncodeCall(p.Version.InitSignature(), p.Values()...)
}

// Run derives the address. With explicit hex addresses, an explicit beacon
// and Verify unset it makes no network call.
func (d *DeriveAddress) Run(ctx context.Context, params DeriveAddressParams) (*DerivationResult, error) {
	params, err := d.withDefaults(params)
	if err != nil {
		return nil, err
	}
	if params.Nonce == nil {
		return nil, fmt.Errorf("derive: salt nonce is required")
	}

	r := &addressResolver{d: d}

	result := &DerivationResult{Strategy: params.Strategy}
	if result.Factory, err = r.resolve(ctx, "factory", params.Factory); err != nil {
		return nil, err
	}
	if result.Requester, err = r.resolve(ctx, "requester", params.Requester); err != nil {
		return nil, err
	}

	if params.Beacon != "" {
		if result.Beacon, err = r.resolve(ctx, "beacon", params.Beacon); err != nil {
			return nil, err
		}
	} else {
		if result.Beacon, err = d.readAddress(ctx, result.Factory, beaconGetter); err != nil {
			return nil, fmt.Errorf("beacon: %w", err)
		}
	}

	payload := models.InitPayload{
		Version:  params.Version,
		OwnerKey: params.OwnerKey,
		DeviceID: params.DeviceID,
	}
	if payload.Registry, err = r.resolve(ctx, "registry", params.Registry); err != nil {
		return nil, err
	}
	if params.Version == models.ProtocolV2 {
		if payload.SecondaryFactory, err = r.resolve(ctx, "secondary factory", params.SecondaryFactory); err != nil {
			return nil, err
		}
	}
	if result.Payload, err = EncodeInitPayload(payload); err != nil {
		return nil, err
	}

	if result.CtorArgs, err = abicodec.EncodeTuple([]string{"address", "bytes"}, []any{result.Beacon, result.Payload}); err != nil {
		return nil, err
	}

	salt, err := create2.DeriveSalt(params.Strategy, result.Requester, params.Nonce)
	if err != nil {
		return nil, err
	}
	result.Salt = common.Hash(salt)

	art, err := d.artifacts.Load(ctx, params.ProxyArtifact)
	if err != nil {
		return nil, err
	}
	if len(art.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact %s has no creation bytecode", params.ProxyArtifact)
	}

	derived := create2.Derive(result.Factory, salt, art.Bytecode, result.CtorArgs)
	result.Address = derived.Address
	result.InitCode = derived.InitCode
	result.InitCodeHash = derived.InitCodeHash

	d.log.Debug("derived address",
		"factory", result.Factory.Hex(),
		"beacon", result.Beacon.Hex(),
		"salt", result.Salt.Hex(),
		"strategy", result.Strategy,
		"address", result.Address.Hex())

	if !params.Verify {
		return result, nil
	}

	// The factory takes the salt as a uint256 and uses bytes32(salt).
	data, err := abicodec.EncodeCall(counterfactualGetter, params.OwnerKey, params.DeviceID, new(big.Int).SetBytes(salt[:]))
	if err != nil {
		return nil, err
	}
	out, err := d.network.ReadState(ctx, result.Factory, data)
	if err != nil {
		return result, fmt.Errorf("verify: %w", err)
	}
	if err := abicodec.DecodeReturns(counterfactualGetter, "address", out, &result.OnChain); err != nil {
		return result, fmt.Errorf("verify: %w", err)
	}
	if result.OnChain != result.Address {
		return result, &domain.DerivationMismatchError{
			Factory:  result.Factory,
			Salt:     result.Salt,
			Expected: result.Address,
			Actual:   result.OnChain,
		}
	}
	result.Verified = true
	return result, nil
}

func (d *DeriveAddress) withDefaults(p DeriveAddressParams) (DeriveAddressParams, error) {
	if p.Factory == "" {
		p.Factory = DefaultDeriveFactory
	}
	if p.Registry == "" {
		p.Registry = DefaultDeriveRegistry
	}
	if p.SecondaryFactory == "" {
		p.SecondaryFactory = DefaultDeriveSecondaryFactory
	}
	if p.Requester == "" {
		p.Requester = DefaultDeriveRequester
	}
	if p.ProxyArtifact == "" {
		p.ProxyArtifact = d.cfg.Artifacts.BeaconProxy
	}
	if p.ProxyArtifact == "" {
		p.ProxyArtifact = DefaultBeaconProxyArtifact
	}
	if p.Strategy == "" {
		s, err := create2.ParseSaltStrategy(d.cfg.SaltStrategy)
		if err != nil {
			return p, err
		}
		p.Strategy = s
	}
	if p.Version == "" {
		p.Version = d.cfg.ProtocolVersion
	}
	if p.Version == "" {
		p.Version = models.ProtocolV2
	}
	return p, nil
}

func (d *DeriveAddress) readAddress(ctx context.Context, target common.Address, getter string) (common.Address, error) {
	data, err := abicodec.EncodeCall(getter)
	if err != nil {
		return common.Address{}, err
	}
	out, err := d.network.ReadState(ctx, target, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("read %s on %s: %w", getter, target.Hex(), err)
	}
	var addr common.Address
	if err := abicodec.DecodeReturns(getter, "address", out, &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// addressResolver loads the deployment record the first time a unit name
// has to be resolved.
type addressResolver struct {
	d      *DeriveAddress
	record *models.DeploymentRecord
}

func (r *addressResolver) resolve(ctx context.Context, what, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if r.record == nil && !common.IsHexAddress(s) && !strings.HasPrefix(s, "@") {
		if err := r.load(ctx); err != nil {
			return common.Address{}, fmt.Errorf("%s %s: %w", what, s, err)
		}
	}
	addr, err := ResolveAddress(r.record, r.d.signers, s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", what, err)
	}
	return addr, nil
}

func (r *addressResolver) load(ctx context.Context) error {
	cfg := r.d.cfg
	if cfg.Network == nil {
		return domain.ErrNoNetwork
	}
	chainID := cfg.Network.ChainID
	if chainID == 0 {
		id, err := r.d.network.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("failed to get chain ID: %w", err)
		}
		chainID = id
	}
	record, err := r.d.records.Load(ctx, cfg.Network.Name, chainID)
	if err != nil {
		return fmt.Errorf("failed to load deployment record: %w", err)
	}
	r.record = record
	return nil
}
