// internal/bridge/chain.go
package bridge

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// ChainID is a Wormhole chain identifier.
type ChainID uint16

const (
	ChainSolana   ChainID = 1
	ChainEthereum ChainID = 2
	ChainBSC      ChainID = 4
	ChainPolygon  ChainID = 5
)

var chainNames = map[ChainID]string{
	ChainSolana:   "solana",
	ChainEthereum: "ethereum",
	ChainBSC:      "bsc",
	ChainPolygon:  "polygon",
}

func (c ChainID) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return fmt.Sprintf("chain(%d)", uint16(c))
}

// ParseChain accepts a chain name, case-insensitive.
func ParseChain(s string) (ChainID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range chainNames {
		if name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown chain %q: %w", s, types.ErrUnsupported)
}

// Address32 is a foreign-chain address left-padded to 32 bytes.
type Address32 [32]byte

// ParseAddress32 decodes a hex address (with or without 0x) and left-pads it.
func ParseAddress32(s string) (Address32, error) {
	var out Address32
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return out, fmt.Errorf("invalid hex address %q: %w", s, err)
	}
	if len(raw) > len(out) {
		return out, fmt.Errorf("address %q longer than 32 bytes: %w", s, types.ErrRange)
	}
	copy(out[len(out)-len(raw):], raw)
	return out, nil
}

func (a Address32) Hex() string {
	return hex.EncodeToString(a[:])
}

// MarshalText/UnmarshalText let registry files carry 0x-prefixed addresses.
func (a Address32) MarshalText() ([]byte, error) {
	return []byte("0x" + a.Hex()), nil
}

func (a *Address32) UnmarshalText(text []byte) error {
	v, err := ParseAddress32(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (c ChainID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ChainID) UnmarshalText(text []byte) error {
	id, err := ParseChain(string(text))
	if err != nil {
		return err
	}
	*c = id
	return nil
}
