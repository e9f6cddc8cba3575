package consensus

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// encodeAddr builds a bech32 address for tests without hardcoding
// checksum strings.
func encodeAddr(t *testing.T, hrp string, version byte, program []byte) string {
	t.Helper()
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	addr, err := bech32.Encode(hrp, append([]byte{version}, conv...))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return addr
}

func TestDecodeAddress(t *testing.T) {
	t.Parallel()

	n := Main()
	program := bytes.Repeat([]byte{0xab}, 20)
	addr := encodeAddr(t, "hs", 0, program)

	dec, err := n.DecodeAddress(addr)
	if err != nil {
		t.Fatalf("DecodeAddress(%q) error: %v", addr, err)
	}
	if dec.Version != 0 {
		t.Fatalf("version = %d, want 0", dec.Version)
	}
	if !bytes.Equal(dec.Hash, program) {
		t.Fatalf("program = %x, want %x", dec.Hash, program)
	}
	if dec.HashHex() != "abababababababababababababababababababab" {
		t.Fatalf("HashHex = %s", dec.HashHex())
	}
}

func TestDecodeAddress32Byte(t *testing.T) {
	t.Parallel()

	n := Main()
	program := bytes.Repeat([]byte{0x01}, 32)
	addr := encodeAddr(t, "hs", 0, program)
	dec, err := n.DecodeAddress(addr)
	if err != nil {
		t.Fatalf("DecodeAddress error: %v", err)
	}
	if len(dec.Hash) != 32 {
		t.Fatalf("program length = %d, want 32", len(dec.Hash))
	}
}

func TestDecodeAddressRejects(t *testing.T) {
	t.Parallel()

	n := Main()
	cases := []struct {
		name string
		addr string
	}{
		{"garbage", "not-an-address"},
		{"wrong network", encodeAddr(t, "ts", 0, bytes.Repeat([]byte{0x02}, 20))},
		{"bad program length", encodeAddr(t, "hs", 0, bytes.Repeat([]byte{0x03}, 25))},
		{"empty payload", func() string {
			addr, _ := bech32.Encode("hs", nil)
			return addr
		}()},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := n.DecodeAddress(tc.addr); err == nil {
				t.Fatalf("DecodeAddress(%q) expected error", tc.addr)
			}
		})
	}
	if n.ValidAddress("junk") {
		t.Fatal("ValidAddress(junk) = true, want false")
	}
}
