package abicodec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ParseType parses a Solidity type string into an abi.Type. Besides the
// elementary types understood by go-ethereum it accepts inline tuples such
// as "(address,uint256)" and "(bytes32,bytes32)[]".
func ParseType(s string) (abi.Type, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return abi.NewType(s, "", nil)
	}

	inner, suffix, err := splitTuple(s)
	if err != nil {
		return abi.Type{}, err
	}
	components, err := tupleComponents(inner)
	if err != nil {
		return abi.Type{}, err
	}
	return abi.NewType("tuple"+suffix, "", components)
}

// ParseTypes parses every entry of types.
func ParseTypes(types []string) ([]abi.Type, error) {
	out := make([]abi.Type, len(types))
	for i, t := range types {
		parsed, err := ParseType(t)
		if err != nil {
			return nil, &EncodingError{Index: i, Type: t, Reason: err.Error()}
		}
		out[i] = parsed
	}
	return out, nil
}

func tupleComponents(inner string) ([]abi.ArgumentMarshaling, error) {
	parts, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}
	components := make([]abi.ArgumentMarshaling, 0, len(parts))
	for i, part := range parts {
		name := fmt.Sprintf("f%d", i)
		if !strings.HasPrefix(part, "(") {
			components = append(components, abi.ArgumentMarshaling{Name: name, Type: part})
			continue
		}
		nestedInner, suffix, err := splitTuple(part)
		if err != nil {
			return nil, err
		}
		nested, err := tupleComponents(nestedInner)
		if err != nil {
			return nil, err
		}
		components = append(components, abi.ArgumentMarshaling{
			Name:       name,
			Type:       "tuple" + suffix,
			Components: nested,
		})
	}
	return components, nil
}

// splitTuple splits "(a,b)[2]" into "a,b" and "[2]".
func splitTuple(s string) (string, string, error) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], nil
			}
		}
	}
	return "", "", fmt.Errorf("unbalanced parentheses in %q", s)
}

// splitTopLevel splits a comma separated list ignoring commas inside
// nested parentheses.
func splitTopLevel(s string) ([]string, error) {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty component in %q", s)
		}
	}
	return parts, nil
}
