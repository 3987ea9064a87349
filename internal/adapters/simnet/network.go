// Package simnet is an in-memory chain used for dry runs and tests. It
// assigns CREATE addresses from (sender, nonce) the way the EVM does and
// dispatches calls to Go behaviours installed on simulated contracts.
package simnet

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trebuchet-org/wallet-deployer/internal/domain"
	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
)

// DefaultChainID is the anvil/hardhat chain id.
const DefaultChainID = 31337

// Identities resolves the account a role signs with.
type Identities interface {
	Address(role models.Role) (common.Address, error)
}

// Installer attaches behaviour to a freshly created contract. A returned
// error reverts the creation.
type Installer func(c *Contract) error

// Submission is one transaction as the network saw it.
type Submission struct {
	Kind    string // "create" or "call"
	Label   string
	Role    models.Role
	From    common.Address
	To      common.Address
	TxHash  common.Hash
	Success bool
}

// Network simulates a single chain.
type Network struct {
	// Latency delays every submission, so overlapping work is observable.
	Latency time.Duration
	// FailWhen reverts a submission when it returns a non-nil error.
	FailWhen func(label string, role models.Role) error
	// GasPrice is charged per submission when set.
	GasPrice *big.Int
	// ConfirmDelay holds back the confirmation of an executed transaction,
	// so a waiter can be interrupted after the send.
	ConfirmDelay func(label string) time.Duration

	chainID uint64
	ids     Identities

	mu          sync.Mutex
	nonces      map[common.Address]uint64
	balances    map[common.Address]*big.Int
	contracts   map[common.Address]*Contract
	installers  map[string]Installer
	receipts    map[common.Hash]*models.Receipt
	failures    map[common.Hash]error
	submissions []Submission
	block       uint64

	inflight     int
	maxInflight  int
	roleInflight map[models.Role]int
	roleOverlap  bool

	// exec serializes contract execution like block inclusion does.
	exec sync.Mutex
}

// New creates an empty network.
func New(chainID uint64, ids Identities) *Network {
	if chainID == 0 {
		chainID = DefaultChainID
	}
	return &Network{
		chainID:      chainID,
		ids:          ids,
		nonces:       make(map[common.Address]uint64),
		balances:     make(map[common.Address]*big.Int),
		contracts:    make(map[common.Address]*Contract),
		installers:   make(map[string]Installer),
		receipts:     make(map[common.Hash]*models.Receipt),
		failures:     make(map[common.Hash]error),
		roleInflight: make(map[models.Role]int),
	}
}

// Install registers behaviour for contracts created under label.
func (n *Network) Install(label string, fn Installer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.installers[label] = fn
}

// Put places a contract at addr without a transaction, like a predeploy.
func (n *Network) Put(addr common.Address, label string) *Contract {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := newContract(n, addr, label, nil, nil)
	n.contracts[addr] = c
	return c
}

// At returns the contract at addr.
func (n *Network) At(addr common.Address) (*Contract, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[addr]
	return c, ok
}

// Labeled returns the most recent contract created under label.
func (n *Network) Labeled(label string) (*Contract, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var found *Contract
	for _, c := range n.contracts {
		if c.Label == label && (found == nil || c.created > found.created) {
			found = c
		}
	}
	return found, found != nil
}

// Submissions returns every transaction in submission order.
func (n *Network) Submissions() []Submission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Submission(nil), n.submissions...)
}

// MaxInFlight is the highest number of simultaneous submissions observed.
func (n *Network) MaxInFlight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.maxInflight
}

// RoleOverlap reports whether a role ever had two submissions in flight.
func (n *Network) RoleOverlap() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.roleOverlap
}

// Nonce returns the next nonce of addr.
func (n *Network) Nonce(addr common.Address) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[addr]
}

func (n *Network) ChainID(context.Context) (uint64, error) {
	return n.chainID, nil
}

func (n *Network) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (n *Network) SetBalance(_ context.Context, addr common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[addr] = new(big.Int).Set(amount)
	return nil
}

// SendCreation deploys a contract at CREATE(sender, nonce). The creation
// executes immediately; its outcome is reported by WaitMined.
func (n *Network) SendCreation(ctx context.Context, role models.Role, creation models.Creation) (*models.PendingTx, error) {
	return n.submit(ctx, role, "create", creation.Label, common.Address{}, func(from common.Address, nonce uint64, receipt *models.Receipt) error {
		addr := crypto.CreateAddress(from, nonce)
		c := newContract(n, addr, creation.Label, creation.Bytecode, creation.Args)

		n.mu.Lock()
		install := n.installers[creation.Label]
		n.mu.Unlock()
		if install != nil {
			if err := install(c); err != nil {
				return err
			}
		}

		n.mu.Lock()
		c.created = n.block
		n.contracts[addr] = c
		n.mu.Unlock()
		receipt.ContractAddress = addr
		return nil
	})
}

// SendCall executes call against the target. Calls to addresses without
// a contract, or to selectors without behaviour, succeed and do nothing.
func (n *Network) SendCall(ctx context.Context, role models.Role, call models.Call) (*models.PendingTx, error) {
	return n.submit(ctx, role, "call", call.Label, call.To, func(from common.Address, _ uint64, _ *models.Receipt) error {
		c, ok := n.At(call.To)
		if !ok {
			return nil
		}
		_, err := c.dispatch(from, call.Data, true)
		return err
	})
}

// ReadState executes a read-only call.
func (n *Network) ReadState(_ context.Context, target common.Address, data []byte) ([]byte, error) {
	c, ok := n.At(target)
	if !ok {
		return nil, fmt.Errorf("no contract at %s", target.Hex())
	}
	n.exec.Lock()
	defer n.exec.Unlock()
	return c.dispatch(common.Address{}, data, false)
}

// WaitMined returns the receipt of tx once ConfirmDelay has passed.
func (n *Network) WaitMined(ctx context.Context, tx *models.PendingTx) (*models.Receipt, error) {
	if n.ConfirmDelay != nil {
		if d := n.ConfirmDelay(tx.Label); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}

	n.mu.Lock()
	r, ok := n.receipts[tx.TxHash]
	failure := n.failures[tx.TxHash]
	n.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: transaction %s not found", tx.Label, tx.TxHash.Hex())
	}
	out := *r
	if failure != nil {
		return &out, fmt.Errorf("%w: %v", domain.ErrTransactionReverted, failure)
	}
	return &out, nil
}

func (n *Network) submit(ctx context.Context, role models.Role, kind, label string, to common.Address, apply func(common.Address, uint64, *models.Receipt) error) (*models.PendingTx, error) {
	from, err := n.ids.Address(role)
	if err != nil {
		return nil, err
	}

	n.enter(role)
	defer n.leave(role)

	if n.Latency > 0 {
		t := time.NewTimer(n.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	n.exec.Lock()
	defer n.exec.Unlock()

	n.mu.Lock()
	nonce := n.nonces[from]
	n.nonces[from] = nonce + 1
	n.block++
	receipt := &models.Receipt{
		TxHash:      txHash(from, nonce),
		From:        from,
		BlockNumber: n.block,
		GasUsed:     21000,
	}
	if n.GasPrice != nil {
		fee := new(big.Int).Mul(n.GasPrice, new(big.Int).SetUint64(receipt.GasUsed))
		balance := n.balances[from]
		if balance == nil || balance.Cmp(fee) < 0 {
			n.nonces[from] = nonce
			n.block--
			n.mu.Unlock()
			return nil, fmt.Errorf("insufficient funds for gas: %s needs %s wei", from.Hex(), fee)
		}
		n.balances[from] = new(big.Int).Sub(balance, fee)
	}
	n.mu.Unlock()

	var failure error
	if n.FailWhen != nil {
		failure = n.FailWhen(label, role)
	}
	if failure == nil {
		failure = apply(from, nonce, receipt)
	}
	receipt.Success = failure == nil

	n.mu.Lock()
	n.receipts[receipt.TxHash] = receipt
	if failure != nil {
		n.failures[receipt.TxHash] = failure
	}
	n.submissions = append(n.submissions, Submission{
		Kind:    kind,
		Label:   label,
		Role:    role,
		From:    from,
		To:      to,
		TxHash:  receipt.TxHash,
		Success: receipt.Success,
	})
	n.mu.Unlock()

	pending := &models.PendingTx{Label: label, TxHash: receipt.TxHash, From: from, Nonce: nonce}
	if kind == "create" {
		pending.ContractAddress = crypto.CreateAddress(from, nonce)
	}
	return pending, nil
}

func (n *Network) enter(role models.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight++
	if n.inflight > n.maxInflight {
		n.maxInflight = n.inflight
	}
	if n.roleInflight[role] > 0 {
		n.roleOverlap = true
	}
	n.roleInflight[role]++
}

func (n *Network) leave(role models.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inflight--
	n.roleInflight[role]--
}

func (n *Network) receipt(hash common.Hash) (*models.Receipt, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.receipts[hash]
	return r, ok
}

func txHash(from common.Address, nonce uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return crypto.Keccak256Hash(from.Bytes(), buf[:])
}
