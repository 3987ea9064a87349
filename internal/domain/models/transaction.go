package models

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Creation is a contract creation request. Bytecode and Args are kept apart
// so simulated networks can recognise the creation code.
type Creation struct {
	Label    string
	Bytecode []byte
	Args     []byte
}

// InitCode is the full creation payload.
func (c Creation) InitCode() []byte {
	out := make([]byte, 0, len(c.Bytecode)+len(c.Args))
	out = append(out, c.Bytecode...)
	return append(out, c.Args...)
}

// Call is a state-changing call request.
type Call struct {
	Label string
	To    common.Address
	Data  []byte
	Value *big.Int
}

// PendingTx is a transaction that has been sent but not yet confirmed.
// ContractAddress is the predicted CREATE address for creations.
type PendingTx struct {
	Label           string
	TxHash          common.Hash
	From            common.Address
	Nonce           uint64
	ContractAddress common.Address
}

// Receipt is the confirmed outcome of a submitted transaction.
type Receipt struct {
	TxHash          common.Hash
	From            common.Address
	ContractAddress common.Address
	BlockNumber     uint64
	GasUsed         uint64
	Success         bool
}

// Artifact is compiled contract output.
type Artifact struct {
	Name     string
	Path     string
	Bytecode []byte
	ABI      json.RawMessage
}
