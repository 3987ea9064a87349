package create2

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trebuchet-org/wallet-deployer/pkg/abicodec"
)

// SaltStrategy selects how a (requester, nonce) pair becomes a 32-byte salt.
// The two strategies yield different addresses for the same inputs.
type SaltStrategy string

const (
	// SaltHashed is keccak256(abi.encode(address requester, uint256 nonce)).
	SaltHashed SaltStrategy = "hashed"
	// SaltPadded is the nonce left-padded to 32 bytes; the requester is ignored.
	SaltPadded SaltStrategy = "padded"
)

// SaltStrategies lists the supported strategies.
var SaltStrategies = []SaltStrategy{SaltHashed, SaltPadded}

// ParseSaltStrategy accepts the strategy names case-insensitively.
func ParseSaltStrategy(s string) (SaltStrategy, error) {
	switch SaltStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case SaltHashed, "hash", "keccak":
		return SaltHashed, nil
	case SaltPadded, "pad", "zeropad":
		return SaltPadded, nil
	default:
		return "", fmt.Errorf("unknown salt strategy %q (want one of: hashed, padded)", s)
	}
}

// DeriveSalt computes the salt for requester and nonce under strategy.
// A nonce that does not fit uint256 yields an *abicodec.EncodingError.
func DeriveSalt(strategy SaltStrategy, requester common.Address, nonce *big.Int) ([32]byte, error) {
	var salt [32]byte

	switch strategy {
	case SaltHashed:
		encoded, err := abicodec.EncodeTuple([]string{"address", "uint256"}, []any{requester, nonce})
		if err != nil {
			return salt, err
		}
		return ContentHash(encoded), nil
	case SaltPadded:
		encoded, err := abicodec.EncodeTuple([]string{"uint256"}, []any{nonce})
		if err != nil {
			return salt, err
		}
		copy(salt[:], encoded)
		return salt, nil
	default:
		return salt, fmt.Errorf("unknown salt strategy %q", strategy)
	}
}
