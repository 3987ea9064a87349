package abicodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// Coerce converts v into the Go representation go-ethereum expects for typ.
// Plan files and flags hand us strings and plain integers; this is where
// they are checked against the declared type.
func Coerce(typ abi.Type, v any) (any, error) {
	rv, err := coerce(typ, v)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func coerce(typ abi.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Value{}, errors.New("missing value")
	}

	switch typ.T {
	case abi.UintTy, abi.IntTy:
		return coerceInt(typ, v)
	case abi.BoolTy:
		return coerceBool(v)
	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected string, got %T", v)
		}
		return reflect.ValueOf(s), nil
	case abi.AddressTy:
		addr, err := toAddress(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(addr), nil
	case abi.FixedBytesTy:
		return coerceFixedBytes(typ, v)
	case abi.BytesTy:
		b, err := toBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	case abi.ArrayTy, abi.SliceTy:
		return coerceList(typ, v)
	case abi.TupleTy:
		return coerceTuple(typ, v)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported type %s", typ.String())
	}
}

func coerceInt(typ abi.Type, v any) (reflect.Value, error) {
	n, err := toBigInt(v)
	if err != nil {
		return reflect.Value{}, err
	}

	unsigned := typ.T == abi.UintTy
	if unsigned {
		if n.Sign() < 0 {
			return reflect.Value{}, fmt.Errorf("negative value %s in unsigned slot", n)
		}
		if n.BitLen() > typ.Size {
			return reflect.Value{}, fmt.Errorf("value %s exceeds %d bits", n, typ.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		minimum := new(big.Int).Neg(limit)
		if n.Cmp(limit) >= 0 || n.Cmp(minimum) < 0 {
			return reflect.Value{}, fmt.Errorf("value %s out of range for int%d", n, typ.Size)
		}
	}

	goType := typ.GetType()
	if goType == bigIntType {
		return reflect.ValueOf(n), nil
	}
	out := reflect.New(goType).Elem()
	if unsigned {
		out.SetUint(n.Uint64())
	} else {
		out.SetInt(n.Int64())
	}
	return out, nil
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, errors.New("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("non-integral number %v", x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	case json.Number:
		return parseBigInt(string(x))
	case string:
		return parseBigInt(x)
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

// parseBigInt accepts decimal and 0x-prefixed hex, optionally negative.
func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")

	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || digits == "" {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func coerceBool(v any) (reflect.Value, error) {
	switch x := v.(type) {
	case bool:
		return reflect.ValueOf(x), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true":
			return reflect.ValueOf(true), nil
		case "false":
			return reflect.ValueOf(false), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("expected bool, got %v", v)
}

func toAddress(v any) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case *common.Address:
		if x == nil {
			return common.Address{}, errors.New("nil address")
		}
		return *x, nil
	case [20]byte:
		return common.Address(x), nil
	case []byte:
		if len(x) != common.AddressLength {
			return common.Address{}, fmt.Errorf("address must be 20 bytes, got %d", len(x))
		}
		return common.BytesToAddress(x), nil
	case string:
		s := strings.TrimSpace(x)
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("invalid address %q", x)
		}
		return common.HexToAddress(s), nil
	default:
		return common.Address{}, fmt.Errorf("expected address, got %T", v)
	}
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case hexutil.Bytes:
		return []byte(x), nil
	case common.Hash:
		return x.Bytes(), nil
	case string:
		b, err := hexutil.Decode(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", x, err)
		}
		return b, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return b, nil
	}
	return nil, fmt.Errorf("expected bytes, got %T", v)
}

// coerceFixedBytes left-aligns shorter inputs the way Solidity converts
// bytes to bytesN; longer inputs are rejected.
func coerceFixedBytes(typ abi.Type, v any) (reflect.Value, error) {
	b, err := toBytes(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(b) > typ.Size {
		return reflect.Value{}, fmt.Errorf("byte string of length %d exceeds bytes%d", len(b), typ.Size)
	}
	out := reflect.New(typ.GetType()).Elem()
	reflect.Copy(out, reflect.ValueOf(b))
	return out, nil
}

func coerceList(typ abi.Type, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, fmt.Errorf("expected list for %s, got %T", typ.String(), v)
	}
	n := rv.Len()

	var out reflect.Value
	if typ.T == abi.ArrayTy {
		if n != typ.Size {
			return reflect.Value{}, fmt.Errorf("%s expects %d elements, got %d", typ.String(), typ.Size, n)
		}
		out = reflect.New(typ.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(typ.GetType(), n, n)
	}

	for i := 0; i < n; i++ {
		ev, err := coerce(*typ.Elem, rv.Index(i).Interface())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

func coerceTuple(typ abi.Type, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Type() == typ.TupleType {
		return rv, nil
	}

	var elems []any
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elems = append(elems, rv.Index(i).Interface())
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			elems = append(elems, rv.Field(i).Interface())
		}
	default:
		return reflect.Value{}, fmt.Errorf("expected tuple, got %T", v)
	}
	if len(elems) != len(typ.TupleElems) {
		return reflect.Value{}, fmt.Errorf("tuple expects %d components, got %d", len(typ.TupleElems), len(elems))
	}

	out := reflect.New(typ.TupleType).Elem()
	for i, elemType := range typ.TupleElems {
		ev, err := coerce(*elemType, elems[i])
		if err != nil {
			return reflect.Value{}, fmt.Errorf("component %d: %w", i, err)
		}
		out.Field(i).Set(ev)
	}
	return out, nil
}
