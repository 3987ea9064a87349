package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolVersion selects the wallet initializer layout.
type ProtocolVersion string

const (
	// ProtocolV1 initializes with (registry, ownerKey, deviceId).
	ProtocolV1 ProtocolVersion = "v1"
	// ProtocolV2 appends the secondary (eSIM wallet) factory.
	ProtocolV2 ProtocolVersion = "v2"
)

// ParseProtocolVersion accepts "v1", "1", "v2" and "2".
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1", "1":
		return ProtocolV1, nil
	case "v2", "2":
		return ProtocolV2, nil
	default:
		return "", fmt.Errorf("unknown protocol version %q (want v1 or v2)", s)
	}
}

// InitSignature is the initializer signature for the version.
func (v ProtocolVersion) InitSignature() string {
	if v == ProtocolV2 {
		return "init(address,bytes32[2],string,address)"
	}
	return "init(address,bytes32[2],string)"
}

// InitPayload holds the wallet initializer arguments.
type InitPayload struct {
	Version          ProtocolVersion
	Registry         common.Address
	OwnerKey         [2][32]byte
	DeviceID         string
	SecondaryFactory common.Address
}

// Values returns the initializer arguments in declaration order.
func (p InitPayload) Values() []any {
	values := []any{p.Registry, p.OwnerKey, p.DeviceID}
	if p.Version == ProtocolV2 {
		values = append(values, p.SecondaryFactory)
	}
	return values
}

// Validate checks the fields required by the version.
func (p InitPayload) Validate() error {
	switch p.Version {
	case ProtocolV1, ProtocolV2:
	default:
		return fmt.Errorf("unknown protocol version %q", p.Version)
	}
	if p.Registry == (common.Address{}) {
		return fmt.Errorf("init payload: registry address is zero")
	}
	if p.DeviceID == "" {
		return fmt.Errorf("init payload: device id is empty")
	}
	if p.Version == ProtocolV2 && p.SecondaryFactory == (common.Address{}) {
		return fmt.Errorf("init payload: %s requires a secondary factory", p.Version)
	}
	return nil
}
