package abicodec

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lmittmann/w3"
)

var funcCache sync.Map

// Func returns the parsed function for a Solidity signature such as
// "addRegistryAddress(address)". Parsed functions are cached.
func Func(signature, returns string) (*w3.Func, error) {
	key := signature + "|" + returns
	if fn, ok := funcCache.Load(key); ok {
		return fn.(*w3.Func), nil
	}
	fn, err := w3.NewFunc(signature, returns)
	if err != nil {
		return nil, fmt.Errorf("parse function %q: %w", signature, err)
	}
	funcCache.Store(key, fn)
	return fn, nil
}

// EncodeCall builds calldata (selector followed by encoded arguments) for
// signature, coercing each value against the declared parameter type.
func EncodeCall(signature string, values ...any) ([]byte, error) {
	fn, err := Func(signature, "")
	if err != nil {
		return nil, &EncodingError{Index: -1, Reason: err.Error()}
	}
	if len(values) != len(fn.Args) {
		return nil, &EncodingError{
			Index:  -1,
			Reason: fmt.Sprintf("%s takes %d arguments, %d given", signature, len(fn.Args), len(values)),
		}
	}

	coerced := make([]any, len(values))
	for i, arg := range fn.Args {
		c, err := Coerce(arg.Type, values[i])
		if err != nil {
			return nil, &EncodingError{Index: i, Type: paramType(signature, i), Value: values[i], Reason: err.Error()}
		}
		coerced[i] = c
	}

	data, err := fn.EncodeArgs(coerced...)
	if err != nil {
		return nil, &EncodingError{Index: -1, Reason: err.Error()}
	}
	return data, nil
}

// paramType returns the declared type of parameter i of signature. The
// parsed w3 arguments do not carry their type string.
func paramType(signature string, i int) string {
	open := strings.Index(signature, "(")
	if open < 0 {
		return ""
	}
	inner, _, err := splitTuple(signature[open:])
	if err != nil {
		return ""
	}
	params, err := splitTopLevel(inner)
	if err != nil || i >= len(params) {
		return ""
	}
	// drop a parameter name such as "address vault"
	if typ, _, ok := strings.Cut(params[i], " "); ok {
		return typ
	}
	return params[i]
}

// DecodeReturns decodes the output of a call to signature into dst.
func DecodeReturns(signature, returns string, data []byte, dst ...any) error {
	fn, err := Func(signature, returns)
	if err != nil {
		return err
	}
	if err := fn.DecodeReturns(data, dst...); err != nil {
		return fmt.Errorf("decode %s returns: %w", signature, err)
	}
	return nil
}

// Selector returns the 4-byte selector of signature.
func Selector(signature string) ([4]byte, error) {
	fn, err := Func(signature, "")
	if err != nil {
		return [4]byte{}, err
	}
	return fn.Selector, nil
}
