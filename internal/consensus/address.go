package consensus

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Address is a decoded bech32 witness address.
type Address struct {
	HRP     string
	Version int
	Hash    []byte
}

// HashHex returns the witness program as lowercase hex. Coins and
// transactions index addresses by this value.
func (a *Address) HashHex() string {
	return hex.EncodeToString(a.Hash)
}

// DecodeAddress parses a bech32 address and checks it against the
// network's human-readable part.
func (n *Network) DecodeAddress(addr string) (*Address, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if hrp != n.AddressHRP {
		return nil, fmt.Errorf("address prefix %q does not match network %q", hrp, n.Name)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("address carries no witness version")
	}
	version := int(data[0])
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert witness program: %w", err)
	}
	if len(program) < 2 || len(program) > 40 {
		return nil, fmt.Errorf("witness program length %d out of range", len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return nil, fmt.Errorf("version 0 program must be 20 or 32 bytes, got %d", len(program))
	}
	if version > 31 {
		return nil, fmt.Errorf("witness version %d out of range", version)
	}
	return &Address{HRP: hrp, Version: version, Hash: program}, nil
}

// ValidAddress reports whether addr parses as an address for this
// network. Used by search heuristics, where failures are not errors.
func (n *Network) ValidAddress(addr string) bool {
	_, err := n.DecodeAddress(addr)
	return err == nil
}
