package consensus

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// MaxNameSize is the longest allowed name, in bytes.
const MaxNameSize = 63

// rolloutWeeks is the number of weekly buckets names are released over.
const rolloutWeeks = 52

// Character classes for name bytes: 0 invalid, 1 allowed anywhere,
// 2 allowed except as the first or last byte.
var nameCharset = func() [128]byte {
	var t [128]byte
	for c := byte('0'); c <= '9'; c++ {
		t[c] = 1
	}
	for c := byte('a'); c <= 'z'; c++ {
		t[c] = 1
	}
	t['-'] = 2
	t['_'] = 2
	return t
}()

var nameBlacklist = map[string]struct{}{
	"example":   {},
	"invalid":   {},
	"local":     {},
	"localhost": {},
	"test":      {},
	"onion":     {},
}

// VerifyName reports whether a string is a syntactically valid name.
func VerifyName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameSize {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 0x80 {
			return false
		}
		switch nameCharset[c] {
		case 0:
			return false
		case 2:
			if i == 0 || i == len(name)-1 {
				return false
			}
		}
	}
	if _, ok := nameBlacklist[name]; ok {
		return false
	}
	return true
}

// HashName returns the SHA3-256 hash of a name's ASCII bytes.
func HashName(name string) []byte {
	h := sha3.Sum256([]byte(name))
	return h[:]
}

// HashNameHex returns HashName as lowercase hex, the form names are
// keyed by throughout the store.
func HashNameHex(name string) string {
	return hex.EncodeToString(HashName(name))
}

// Rollout returns the height at which a name with the given hash first
// becomes available, along with its week bucket. Names roll out one
// week bucket at a time after the auction start height.
func (n *Network) Rollout(nameHash []byte) (height uint64, week int) {
	week = modHash(nameHash, rolloutWeeks)
	return n.AuctionStart + uint64(week)*n.RolloutInterval, week
}

// RolloutByName is Rollout keyed by the name itself.
func (n *Network) RolloutByName(name string) (height uint64, week int) {
	return n.Rollout(HashName(name))
}

// modHash reduces a big-endian byte string modulo m without converting
// to a big integer.
func modHash(b []byte, m int) int {
	p := 256 % m
	acc := 0
	for _, c := range b {
		acc = (acc*p + int(c)) % m
	}
	return acc
}
