package simnet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

// ErrReadOnly is returned when a state-changing method is reached through
// ReadState.
var ErrReadOnly = errors.New("state change in read-only call")

// Call is one invocation of a simulated method.
type Call struct {
	Net      *Network
	Contract *Contract
	From     common.Address
	Args     []any
}

// MethodFunc implements a method. It returns the values for the declared
// return types, or an error to revert.
type MethodFunc func(call *Call) ([]any, error)

type method struct {
	fn      *w3.Func
	impl    MethodFunc
	mutates bool
}

// Contract is a simulated account with code and key/value state.
type Contract struct {
	Address  common.Address
	Label    string
	Bytecode []byte
	Args     []byte

	net     *Network
	created uint64

	mu      sync.Mutex
	state   map[string]any
	methods map[[4]byte]*method
}

func newContract(n *Network, addr common.Address, label string, bytecode, args []byte) *Contract {
	return &Contract{
		Address:  addr,
		Label:    label,
		Bytecode: append([]byte(nil), bytecode...),
		Args:     append([]byte(nil), args...),
		net:      n,
		state:    make(map[string]any),
		methods:  make(map[[4]byte]*method),
	}
}

// View registers a read-only method. Signature and returns use the w3
// function syntax, e.g. "beacon()" and "address".
func (c *Contract) View(signature, returns string, impl MethodFunc) *Contract {
	c.handle(signature, returns, impl, false)
	return c
}

// Tx registers a state-changing method.
func (c *Contract) Tx(signature string, impl MethodFunc) *Contract {
	c.handle(signature, "", impl, true)
	return c
}

func (c *Contract) handle(signature, returns string, impl MethodFunc, mutates bool) {
	fn := w3.MustNewFunc(signature, returns)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[fn.Selector] = &method{fn: fn, impl: impl, mutates: mutates}
}

// Set stores a state value.
func (c *Contract) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = v
}

// Get loads a state value.
func (c *Contract) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[key]
}

// AddressOf loads an address state value; unset keys are the zero address.
func (c *Contract) AddressOf(key string) common.Address {
	addr, _ := c.Get(key).(common.Address)
	return addr
}

func (c *Contract) dispatch(from common.Address, data []byte, mutating bool) ([]byte, error) {
	if len(data) < 4 {
		if mutating {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: call data too short", c.Label)
	}

	var selector [4]byte
	copy(selector[:], data[:4])
	c.mu.Lock()
	m, ok := c.methods[selector]
	c.mu.Unlock()
	if !ok {
		if mutating {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: no view method for selector %x", c.Label, selector)
	}
	if m.mutates && !mutating {
		return nil, fmt.Errorf("%s.%s: %w", c.Label, m.fn.Signature, ErrReadOnly)
	}

	args, err := m.fn.Args.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%s.%s: decode arguments: %w", c.Label, m.fn.Signature, err)
	}
	out, err := m.impl(&Call{Net: c.net, Contract: c, From: from, Args: args})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.Label, m.fn.Signature, err)
	}
	if len(m.fn.Returns) == 0 {
		return nil, nil
	}
	return m.fn.Returns.Pack(out...)
}
