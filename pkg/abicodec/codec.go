// Package abicodec encodes and decodes Solidity ABI tuples and function calls
// from loosely typed values, validating each value against its declared type
// before it reaches the go-ethereum packer.
package abicodec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EncodeTuple produces the standard ABI encoding of values under the given
// schema, byte-for-byte what abi.encode(...) yields on-chain.
func EncodeTuple(types []string, values []any) ([]byte, error) {
	if len(types) != len(values) {
		return nil, &EncodingError{
			Index:  -1,
			Reason: fmt.Sprintf("schema has %d types but %d values were given", len(types), len(values)),
		}
	}

	args, err := arguments(types)
	if err != nil {
		return nil, err
	}

	coerced := make([]any, len(args))
	for i, arg := range args {
		c, err := Coerce(arg.Type, values[i])
		if err != nil {
			return nil, &EncodingError{Index: i, Type: types[i], Value: values[i], Reason: err.Error()}
		}
		coerced[i] = c
	}

	out, err := args.Pack(coerced...)
	if err != nil {
		return nil, &EncodingError{Index: -1, Reason: err.Error()}
	}
	return out, nil
}

// DecodeTuple reverses EncodeTuple, returning go-ethereum's native
// representation of each value.
func DecodeTuple(types []string, data []byte) ([]any, error) {
	args, err := arguments(types)
	if err != nil {
		return nil, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode tuple: %w", err)
	}
	return values, nil
}

func arguments(types []string) (abi.Arguments, error) {
	parsed, err := ParseTypes(types)
	if err != nil {
		return nil, err
	}
	args := make(abi.Arguments, len(parsed))
	for i, typ := range parsed {
		args[i] = abi.Argument{Type: typ}
	}
	return args, nil
}
