package abicodec

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func TestEncodeTuple_Layout(t *testing.T) {
	out, err := EncodeTuple([]string{"address", "uint256"}, []any{testAddr, 111})
	require.NoError(t, err)

	expected := append(common.LeftPadBytes(testAddr.Bytes(), 32), common.LeftPadBytes(big.NewInt(111).Bytes(), 32)...)
	assert.Equal(t, expected, out)
}

func TestEncodeTuple_DynamicBytes(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	out, err := EncodeTuple([]string{"address", "bytes"}, []any{testAddr.Hex(), hexutil.Encode(payload)})
	require.NoError(t, err)

	// head: address, offset(0x40); tail: length, right-padded data
	require.Len(t, out, 4*32)
	assert.Equal(t, common.LeftPadBytes(testAddr.Bytes(), 32), out[0:32])
	assert.Equal(t, common.LeftPadBytes([]byte{0x40}, 32), out[32:64])
	assert.Equal(t, common.LeftPadBytes([]byte{0x04}, 32), out[64:96])
	assert.Equal(t, common.RightPadBytes(payload, 32), out[96:128])
}

func TestEncodeTuple_RoundTrip(t *testing.T) {
	k1 := common.HexToHash("0x01")
	k2 := common.HexToHash("0x02")

	tests := []struct {
		name   string
		types  []string
		values []any
		check  func(t *testing.T, decoded []any)
	}{
		{
			name:   "address and uint256",
			types:  []string{"address", "uint256"},
			values: []any{testAddr, "0x6f"},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, testAddr, decoded[0])
				assert.Equal(t, big.NewInt(111), decoded[1])
			},
		},
		{
			name:   "small unsigned maps to native width",
			types:  []string{"uint8", "uint64"},
			values: []any{uint8(7), "18446744073709551615"},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, uint8(7), decoded[0])
				assert.Equal(t, uint64(18446744073709551615), decoded[1])
			},
		},
		{
			name:   "fixed bytes array and string",
			types:  []string{"bytes32[2]", "string"},
			values: []any{[]any{k1.Hex(), k2}, "Device_11"},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, [2][32]byte{k1, k2}, decoded[0])
				assert.Equal(t, "Device_11", decoded[1])
			},
		},
		{
			name:   "dynamic bytes",
			types:  []string{"bytes"},
			values: []any{[]byte{1, 2, 3}},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, []byte{1, 2, 3}, decoded[0])
			},
		},
		{
			name:   "nested tuple",
			types:  []string{"(address,uint256)", "bool"},
			values: []any{[]any{testAddr, 42}, true},
			check: func(t *testing.T, decoded []any) {
				tuple := reflect.ValueOf(decoded[0])
				require.Equal(t, reflect.Struct, tuple.Kind())
				assert.Equal(t, testAddr, tuple.Field(0).Interface())
				assert.Equal(t, big.NewInt(42), tuple.Field(1).Interface())
				assert.Equal(t, true, decoded[1])
			},
		},
		{
			name:   "address slice",
			types:  []string{"address[]"},
			values: []any{[]string{testAddr.Hex(), common.Address{}.Hex()}},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, []common.Address{testAddr, {}}, decoded[0])
			},
		},
		{
			name:   "signed integer",
			types:  []string{"int256"},
			values: []any{-5},
			check: func(t *testing.T, decoded []any) {
				assert.Equal(t, big.NewInt(-5), decoded[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeTuple(tt.types, tt.values)
			require.NoError(t, err)

			again, err := EncodeTuple(tt.types, tt.values)
			require.NoError(t, err)
			assert.Equal(t, encoded, again)

			decoded, err := DecodeTuple(tt.types, encoded)
			require.NoError(t, err)
			require.Len(t, decoded, len(tt.types))
			tt.check(t, decoded)
		})
	}
}

func TestEncodeTuple_Errors(t *testing.T) {
	tests := []struct {
		name      string
		types     []string
		values    []any
		wantIndex int
	}{
		{"negative unsigned", []string{"address", "uint256"}, []any{testAddr, -1}, 1},
		{"too wide", []string{"uint8"}, []any{300}, 0},
		{"signed overflow", []string{"int8"}, []any{128}, 0},
		{"fixed bytes overflow", []string{"bytes4"}, []any{"0x0102030405"}, 0},
		{"malformed address", []string{"address"}, []any{"0x1234"}, 0},
		{"string for bool", []string{"bool"}, []any{"maybe"}, 0},
		{"wrong array length", []string{"bytes32[2]"}, []any{[]any{"0x01"}}, 0},
		{"not a string", []string{"string"}, []any{12}, 0},
		{"unknown type", []string{"wat"}, []any{1}, 0},
		{"arity mismatch", []string{"address"}, []any{testAddr, 1}, -1},
		{"nil value", []string{"address"}, []any{nil}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeTuple(tt.types, tt.values)
			require.Error(t, err)

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr), "expected EncodingError, got %T", err)
			assert.Equal(t, tt.wantIndex, encErr.Index)
		})
	}
}

func TestEncodeTuple_ShortFixedBytesAreLeftAligned(t *testing.T) {
	out, err := EncodeTuple([]string{"bytes4"}, []any{"0xabcd"})
	require.NoError(t, err)
	assert.Equal(t, common.RightPadBytes([]byte{0xab, 0xcd}, 32), out)
}

func TestParseType_Tuples(t *testing.T) {
	typ, err := ParseType("((address,uint256),bytes32)[]")
	require.NoError(t, err)
	require.Equal(t, abi.SliceTy, typ.T)
	require.Equal(t, abi.TupleTy, typ.Elem.T)
	require.Len(t, typ.Elem.TupleElems, 2)
	assert.Equal(t, abi.TupleTy, typ.Elem.TupleElems[0].T)
	assert.Equal(t, abi.FixedBytesTy, typ.Elem.TupleElems[1].T)

	_, err = ParseType("(address,uint256")
	assert.Error(t, err)

	_, err = ParseType("(address,,uint256)")
	assert.Error(t, err)
}
