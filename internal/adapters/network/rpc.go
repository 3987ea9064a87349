package network

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/config"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultConfirmTimeout = 2 * time.Minute
	// gasHeadroom is added to estimates, in percent.
	gasHeadroom = 20
)

// KeySource yields the private key a role signs with.
type KeySource interface {
	PrivateKey(role models.Role) (*ecdsa.PrivateKey, error)
}

// RPCNetwork submits EIP-1559 transactions over JSON-RPC.
type RPCNetwork struct {
	cfg  *config.RuntimeConfig
	keys KeySource
	log  *slog.Logger

	mu      sync.Mutex
	raw     *rpc.Client
	client  *w3.Client
	chainID *big.Int
	nonces  map[common.Address]uint64
	senders map[common.Address]*sync.Mutex
}

// NewRPCNetwork creates a network adapter. The connection is opened on first use.
func NewRPCNetwork(cfg *config.RuntimeConfig, keys KeySource, log *slog.Logger) *RPCNetwork {
	return &RPCNetwork{
		cfg:     cfg,
		keys:    keys,
		log:     log,
		nonces:  make(map[common.Address]uint64),
		senders: make(map[common.Address]*sync.Mutex),
	}
}

func (n *RPCNetwork) connect(ctx context.Context) (*w3.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}
	if n.cfg.Network == nil {
		return nil, domain.ErrNoNetwork
	}
	if n.cfg.Network.RPCURL == "" {
		return nil, fmt.Errorf("network %s has no rpc_url", n.cfg.Network.Name)
	}

	raw, err := rpc.DialContext(ctx, n.cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	n.raw = raw
	n.client = w3.NewClient(raw)
	n.log.Debug("connected", "network", n.cfg.Network.Name, "rpc", n.cfg.Network.RPCURL)
	return n.client, nil
}

// Close releases the RPC connection.
func (n *RPCNetwork) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == nil {
		return nil
	}
	err := n.client.Close()
	n.client, n.raw = nil, nil
	return err
}

func (n *RPCNetwork) ChainID(ctx context.Context) (uint64, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return 0, err
	}
	var id uint64
	if err := client.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	n.mu.Lock()
	n.chainID = new(big.Int).SetUint64(id)
	n.mu.Unlock()
	return id, nil
}

func (n *RPCNetwork) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := client.CallCtx(ctx, eth.Balance(addr, nil).Returns(&balance)); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// SetBalance uses anvil_setBalance; only test nodes implement it.
func (n *RPCNetwork) SetBalance(ctx context.Context, addr common.Address, amount *big.Int) error {
	if _, err := n.connect(ctx); err != nil {
		return err
	}
	if err := n.raw.CallContext(ctx, nil, "anvil_setBalance", addr, hexutil.EncodeBig(amount)); err != nil {
		return fmt.Errorf("anvil_setBalance: %w", err)
	}
	return nil
}

func (n *RPCNetwork) ReadState(ctx context.Context, target common.Address, data []byte) ([]byte, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return nil, err
	}
	var out []byte
	if err := client.CallCtx(ctx, eth.Call(&w3types.Message{To: &target, Input: data}, nil, nil).Returns(&out)); err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", target.Hex(), err)
	}
	return out, nil
}

func (n *RPCNetwork) SendCreation(ctx context.Context, role models.Role, creation models.Creation) (*models.PendingTx, error) {
	return n.send(ctx, role, creation.Label, nil, creation.InitCode(), nil)
}

func (n *RPCNetwork) SendCall(ctx context.Context, role models.Role, call models.Call) (*models.PendingTx, error) {
	to := call.To
	return n.send(ctx, role, call.Label, &to, call.Data, call.Value)
}

func (n *RPCNetwork) send(ctx context.Context, role models.Role, label string, to *common.Address, data []byte, value *big.Int) (*models.PendingTx, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return nil, err
	}
	key, err := n.keys.PrivateKey(role)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := n.chain(ctx)
	if err != nil {
		return nil, err
	}

	unlock := n.lockSender(from)
	nonce, err := n.nextNonce(ctx, client, from)
	if err != nil {
		unlock()
		return nil, err
	}

	var gas uint64
	msg := &w3types.Message{From: from, To: to, Input: data, Value: value}
	if err := client.CallCtx(ctx, eth.EstimateGas(msg, nil).Returns(&gas)); err != nil {
		unlock()
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransactionReverted, label, err)
		}
		return nil, fmt.Errorf("estimate gas for %s: %w", label, err)
	}
	gas += gas * gasHeadroom / 100

	tipCap, feeCap, err := n.fees(ctx, client)
	if err != nil {
		unlock()
		return nil, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	var hash common.Hash
	if err := client.CallCtx(ctx, eth.SendTx(signed).Returns(&hash)); err != nil {
		unlock()
		return nil, fmt.Errorf("send %s: %w", label, err)
	}
	n.mu.Lock()
	n.nonces[from] = nonce + 1
	n.mu.Unlock()
	unlock()

	n.log.Debug("transaction sent", "call", label, "role", role, "from", from.Hex(), "nonce", nonce, "tx", hash.Hex())

	pending := &models.PendingTx{Label: label, TxHash: hash, From: from, Nonce: nonce}
	if to == nil {
		pending.ContractAddress = crypto.CreateAddress(from, nonce)
	}
	return pending, nil
}

// WaitMined polls for the receipt of tx until ConfirmTimeout.
func (n *RPCNetwork) WaitMined(ctx context.Context, tx *models.PendingTx) (*models.Receipt, error) {
	client, err := n.connect(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := n.waitForReceipt(ctx, client, tx.TxHash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tx.Label, err)
	}

	out := &models.Receipt{
		TxHash:          tx.TxHash,
		From:            tx.From,
		ContractAddress: receipt.ContractAddress,
		GasUsed:         receipt.GasUsed,
		Success:         receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if !out.Success {
		return out, fmt.Errorf("%w: %s (tx %s)", domain.ErrTransactionReverted, tx.Label, tx.TxHash.Hex())
	}
	return out, nil
}

func (n *RPCNetwork) chain(ctx context.Context) (*big.Int, error) {
	n.mu.Lock()
	id := n.chainID
	n.mu.Unlock()
	if id != nil {
		return id, nil
	}
	if _, err := n.ChainID(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chainID, nil
}

func (n *RPCNetwork) lockSender(from common.Address) func() {
	n.mu.Lock()
	mu, ok := n.senders[from]
	if !ok {
		mu = &sync.Mutex{}
		n.senders[from] = mu
	}
	n.mu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// nextNonce is the larger of the node's count and the locally tracked one,
// so back-to-back sends do not reuse a nonce the node has not indexed yet.
func (n *RPCNetwork) nextNonce(ctx context.Context, client *w3.Client, from common.Address) (uint64, error) {
	var nonce uint64
	if err := client.CallCtx(ctx, eth.Nonce(from, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if tracked := n.nonces[from]; tracked > nonce {
		nonce = tracked
	}
	return nonce, nil
}

func (n *RPCNetwork) fees(ctx context.Context, client *w3.Client) (tipCap, feeCap *big.Int, err error) {
	tipCap = n.cfg.Gas.TipCap
	if tipCap == nil {
		if err := client.CallCtx(ctx, eth.GasTipCap().Returns(&tipCap)); err != nil {
			return nil, nil, fmt.Errorf("get gas tip cap: %w", err)
		}
	}
	feeCap = n.cfg.Gas.FeeCap
	if feeCap == nil {
		var header *types.Header
		if err := client.CallCtx(ctx, eth.HeaderByNumber(nil).Returns(&header)); err != nil {
			return nil, nil, fmt.Errorf("get latest header: %w", err)
		}
		baseFee := header.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)
	}
	return tipCap, feeCap, nil
}

func (n *RPCNetwork) waitForReceipt(ctx context.Context, client *w3.Client, hash common.Hash) (*types.Receipt, error) {
	timeout := n.cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	interval := n.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := client.CallCtx(ctx, eth.TxReceipt(hash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("transaction %s not confirmed within %s", hash.Hex(), timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}

// Ensure the adapter implements the interface
var _ usecase.Network = (*RPCNetwork)(nil)
