package abicodec

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCall(t *testing.T) {
	data, err := EncodeCall("addRegistryAddress(address)", testAddr.Hex())
	require.NoError(t, err)

	require.Len(t, data, 4+32)
	assert.Equal(t, crypto.Keccak256([]byte("addRegistryAddress(address)"))[:4], data[:4])
	assert.Equal(t, common.LeftPadBytes(testAddr.Bytes(), 32), data[4:])

	sel, err := Selector("addRegistryAddress(address)")
	require.NoError(t, err)
	assert.Equal(t, data[:4], sel[:])
}

func TestEncodeCall_Errors(t *testing.T) {
	t.Run("argument count", func(t *testing.T) {
		_, err := EncodeCall("addRegistryAddress(address)")
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, -1, encErr.Index)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := EncodeCall("setVault(address)", "not-an-address")
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, 0, encErr.Index)
		assert.Equal(t, "address", encErr.Type)
	})

	t.Run("bad value of a named parameter", func(t *testing.T) {
		_, err := EncodeCall("init(address,string,uint256 salt)", testAddr.Hex(), "wallet", "not-a-number")
		var encErr *EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, 2, encErr.Index)
		assert.Equal(t, "uint256", encErr.Type)
	})
}

func TestParamType(t *testing.T) {
	sig := "init(address owner,(bytes32,bytes32)[2],string)"
	assert.Equal(t, "address", paramType(sig, 0))
	assert.Equal(t, "(bytes32,bytes32)[2]", paramType(sig, 1))
	assert.Equal(t, "string", paramType(sig, 2))
	assert.Empty(t, paramType(sig, 3))
	assert.Empty(t, paramType("beacon()", 0))
}

func TestDecodeReturns(t *testing.T) {
	var got common.Address
	err := DecodeReturns("beacon()", "address", common.LeftPadBytes(testAddr.Bytes(), 32), &got)
	require.NoError(t, err)
	assert.Equal(t, testAddr, got)

	err = DecodeReturns("beacon()", "address", []byte{0x01}, &got)
	assert.Error(t, err)
}
