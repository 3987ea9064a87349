// Package create2 reproduces the EVM's CREATE2 address computation and the
// salt derivations used by the wallet factories.
package create2

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContentHash is Keccak-256 over the concatenation of parts.
func ContentHash(parts ...[]byte) common.Hash {
	return crypto.Keccak256Hash(parts...)
}

// InitCode concatenates creation bytecode with its encoded constructor
// arguments.
func InitCode(creationCode, ctorArgs []byte) []byte {
	out := make([]byte, 0, len(creationCode)+len(ctorArgs))
	out = append(out, creationCode...)
	return append(out, ctorArgs...)
}

// Address returns the last 20 bytes of keccak256(0xff ++ factory ++ salt ++ initCodeHash).
func Address(factory common.Address, salt [32]byte, initCodeHash common.Hash) common.Address {
	digest := ContentHash([]byte{0xff}, factory.Bytes(), salt[:], initCodeHash.Bytes())
	return common.BytesToAddress(digest[12:])
}

// Derivation is the result of a counterfactual address computation.
type Derivation struct {
	Address      common.Address
	InitCode     []byte
	InitCodeHash common.Hash
}

// Derive computes the address a factory will create for creationCode with
// ctorArgs under salt. It does not touch the network.
func Derive(factory common.Address, salt [32]byte, creationCode, ctorArgs []byte) Derivation {
	initCode := InitCode(creationCode, ctorArgs)
	hash := ContentHash(initCode)
	return Derivation{
		Address:      Address(factory, salt, hash),
		InitCode:     initCode,
		InitCodeHash: hash,
	}
}
