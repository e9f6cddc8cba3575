package chain

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
)

// Tip is the node's best block.
type Tip struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// Entry is a chain entry as served by the node's /header endpoint.
// Chainwork is cumulative proof of work as a big-endian hex string.
type Entry struct {
	Hash         string `json:"hash"`
	Height       uint64 `json:"height"`
	Version      int    `json:"version"`
	PrevBlock    string `json:"prevBlock"`
	MerkleRoot   string `json:"merkleRoot"`
	WitnessRoot  string `json:"witnessRoot"`
	TreeRoot     string `json:"treeRoot"`
	ReservedRoot string `json:"reservedRoot"`
	Time         int64  `json:"time"`
	Bits         uint32 `json:"bits"`
	Nonce        uint64 `json:"nonce"`
	ExtraNonce   string `json:"extraNonce"`
	Mask         string `json:"mask"`
	Chainwork    string `json:"chainwork"`
}

// ChainworkBig parses the entry's chainwork hex. Returns zero on
// malformed input rather than failing; hashrate math treats that as an
// empty window.
func (e *Entry) ChainworkBig() *big.Int {
	return ParseChainwork(e.Chainwork)
}

// ParseChainwork converts a chainwork hex string to a big integer.
func ParseChainwork(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return new(big.Int)
	}
	return n
}

// Covenant is the name-auction payload attached to an output. Items
// are hex strings; for name covenants the first item is the name hash.
type Covenant struct {
	Type   int      `json:"type"`
	Action string   `json:"action"`
	Items  []string `json:"items"`
}

// NameHash returns the covenant's name hash item, or "" for covenants
// that do not reference a name.
func (c *Covenant) NameHash() string {
	if c == nil || len(c.Items) == 0 {
		return ""
	}
	return c.Items[0]
}

// NameString decodes the raw-name item (index 2 for OPEN, CLAIM, BID
// and FINALIZE covenants) back to ASCII. Returns "" when absent.
func (c *Covenant) NameString() string {
	if c == nil || len(c.Items) < 3 {
		return ""
	}
	raw, err := hex.DecodeString(c.Items[2])
	if err != nil {
		return ""
	}
	return string(raw)
}

// Outpoint references a previous output.
type Outpoint struct {
	Hash  string `json:"hash"`
	Index uint32 `json:"index"`
}

// Coin is the resolved view of a spent output, attached to inputs when
// the node can supply the block's coin view.
type Coin struct {
	Version  int       `json:"version"`
	Height   int64     `json:"height"`
	Value    uint64    `json:"value"`
	Address  string    `json:"address"`
	Covenant *Covenant `json:"covenant"`
	Coinbase bool      `json:"coinbase"`
}

// TxInput is one transaction input. Coin is nil for coinbase inputs
// and for views the node could not resolve.
type TxInput struct {
	Prevout  Outpoint `json:"prevout"`
	Witness  []string `json:"witness"`
	Sequence uint64   `json:"sequence"`
	Coin     *Coin    `json:"coin,omitempty"`
}

// TxOutput is one transaction output. Address is the node's bech32
// rendering.
type TxOutput struct {
	Value    uint64    `json:"value"`
	Address  string    `json:"address"`
	Covenant *Covenant `json:"covenant"`
}

// Tx is a transaction as served inside a block or by /tx/:hash.
// Height is -1 and Block empty while unconfirmed.
type Tx struct {
	Hash     string     `json:"hash"`
	Height   int64      `json:"height"`
	Block    string     `json:"block,omitempty"`
	Time     int64      `json:"time"`
	Mtime    int64      `json:"mtime"`
	Index    int        `json:"index"`
	Fee      uint64     `json:"fee"`
	Rate     uint64     `json:"rate"`
	Version  int        `json:"version"`
	Inputs   []*TxInput `json:"inputs"`
	Outputs  []*TxOutput `json:"outputs"`
	Locktime uint64     `json:"locktime"`
}

// IsCoinbase reports whether the transaction's first input has a null
// prevout, which is how the chain marks coinbase transactions.
func (t *Tx) IsCoinbase() bool {
	if len(t.Inputs) == 0 {
		return false
	}
	p := t.Inputs[0].Prevout
	return p.Index == nullPrevoutIndex && isZeroHash(p.Hash)
}

const nullPrevoutIndex = 0xffffffff

func isZeroHash(h string) bool {
	for i := 0; i < len(h); i++ {
		if h[i] != '0' {
			return false
		}
	}
	return len(h) > 0
}

// Block is a full block with expanded transactions, as served by
// /block/:hashOrHeight. Input coin views are populated by the node.
type Block struct {
	Hash         string `json:"hash"`
	Height       uint64 `json:"height"`
	Depth        int64  `json:"depth"`
	Version      int    `json:"version"`
	PrevBlock    string `json:"prevBlock"`
	MerkleRoot   string `json:"merkleRoot"`
	WitnessRoot  string `json:"witnessRoot"`
	TreeRoot     string `json:"treeRoot"`
	ReservedRoot string `json:"reservedRoot"`
	Time         int64  `json:"time"`
	Bits         uint32 `json:"bits"`
	Nonce        uint64 `json:"nonce"`
	ExtraNonce   string `json:"extraNonce"`
	Mask         string `json:"mask"`
	Txs          []*Tx  `json:"txs"`
}

// NodeInfo is the node's root REST document, trimmed to the fields the
// explorer surfaces.
type NodeInfo struct {
	Version string `json:"version"`
	Network string `json:"network"`
	Chain   struct {
		Height   uint64  `json:"height"`
		Tip      string  `json:"tip"`
		Progress float64 `json:"progress"`
	} `json:"chain"`
	Pool struct {
		Host        string `json:"host"`
		Port        int    `json:"port"`
		IdentityKey string `json:"identitykey"`
		Agent       string `json:"agent"`
		Services    string `json:"services"`
		Outbound    int    `json:"outbound"`
		Inbound     int    `json:"inbound"`
	} `json:"pool"`
	Mempool struct {
		Tx   int `json:"tx"`
		Size int `json:"size"`
	} `json:"mempool"`
	Time struct {
		Uptime   int64 `json:"uptime"`
		System   int64 `json:"system"`
		Adjusted int64 `json:"adjusted"`
		Offset   int64 `json:"offset"`
	} `json:"time"`
}

// ChainInfo is the getblockchaininfo RPC result.
type ChainInfo struct {
	Chain                string  `json:"chain"`
	Blocks               uint64  `json:"blocks"`
	Headers              uint64  `json:"headers"`
	BestBlockHash        string  `json:"bestblockhash"`
	Difficulty           float64 `json:"difficulty"`
	MedianTime           int64   `json:"mediantime"`
	VerificationProgress float64 `json:"verificationprogress"`
	Chainwork            string  `json:"chainwork"`
	Pruned               bool    `json:"pruned"`
}

// BlockHeaderInfo is the verbose getblockheader RPC result; the source
// of median-time-past and the next hash on the main chain.
type BlockHeaderInfo struct {
	Hash          string  `json:"hash"`
	Confirmations int64   `json:"confirmations"`
	Height        uint64  `json:"height"`
	Version       int     `json:"version"`
	MerkleRoot    string  `json:"merkleroot"`
	Time          int64   `json:"time"`
	MedianTime    int64   `json:"mediantime"`
	Bits          uint32  `json:"bits"`
	Difficulty    float64 `json:"difficulty"`
	Chainwork     string  `json:"chainwork"`
	PrevBlockHash string  `json:"previousblockhash"`
	NextBlockHash string  `json:"nextblockhash"`
}

// MempoolInfo is the getmempoolinfo RPC result.
type MempoolInfo struct {
	Size  int   `json:"size"`
	Bytes int64 `json:"bytes"`
}

// NetTotals is the getnettotals RPC result.
type NetTotals struct {
	TotalBytesRecv int64 `json:"totalbytesrecv"`
	TotalBytesSent int64 `json:"totalbytessent"`
	TimeMillis     int64 `json:"timemillis"`
}

// Peer is one getpeerinfo RPC entry.
type Peer struct {
	ID         int     `json:"id"`
	Addr       string  `json:"addr"`
	Name       string  `json:"name,omitempty"`
	Services   string  `json:"services"`
	Inbound    bool    `json:"inbound"`
	SubVer     string  `json:"subver"`
	Version    int     `json:"version"`
	BytesSent  int64   `json:"bytessent"`
	BytesRecv  int64   `json:"bytesrecv"`
	ConnTime   int64   `json:"conntime"`
	PingTime   float64 `json:"pingtime"`
	BestHash   string  `json:"besthash"`
	BestHeight uint64  `json:"bestheight"`
}

// NodeInfoRPC is the getinfo RPC result.
type NodeInfoRPC struct {
	Version         string  `json:"version"`
	ProtocolVersion int     `json:"protocolversion"`
	Blocks          uint64  `json:"blocks"`
	Connections     int     `json:"connections"`
	Difficulty      float64 `json:"difficulty"`
	PooledTx        int     `json:"pooledtx"`
	Testnet         bool    `json:"testnet"`
}

// NameStats carries the per-state countdown fields of the name-info
// stats object. Only the fields relevant to the current state are set
// by the node.
type NameStats struct {
	RenewalPeriodStart *uint64 `json:"renewalPeriodStart,omitempty"`
	RenewalPeriodEnd   *uint64 `json:"renewalPeriodEnd,omitempty"`
	BlocksUntilBidding *int64  `json:"blocksUntilBidding,omitempty"`
	BlocksUntilReveal  *int64  `json:"blocksUntilReveal,omitempty"`
	BlocksUntilClose   *int64  `json:"blocksUntilClose,omitempty"`
	BlocksUntilExpire  *int64  `json:"blocksUntilExpire,omitempty"`
	HoursUntilExpire   float64 `json:"hoursUntilExpire,omitempty"`
}

// NameState is the info half of the getnameinfo RPC result. Nil when
// the chain has no state for the name.
type NameState struct {
	Name       string          `json:"name"`
	NameHash   string          `json:"nameHash"`
	State      string          `json:"state"`
	Height     uint64          `json:"height"`
	Renewal    uint64          `json:"renewal"`
	Owner      *Outpoint       `json:"owner,omitempty"`
	Value      uint64          `json:"value"`
	Highest    uint64          `json:"highest"`
	Data       string          `json:"data"`
	Transfer   uint64          `json:"transfer"`
	Revoked    uint64          `json:"revoked"`
	Claimed    uint64          `json:"claimed"`
	Renewals   uint64          `json:"renewals"`
	Registered bool            `json:"registered"`
	Expired    bool            `json:"expired"`
	Weak       bool            `json:"weak"`
	Stats      *NameStats      `json:"stats,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

/// NameInfo is the full getnameinfo RPC result: the rollout start data
// plus the live state.
type NameInfo struct {
	Start struct {
		Reserved bool   `json:"reserved"`
		Week     int    `json:"week"`
		Start    uint64 `json:"start"`
	} `json:"start"`
	Info *NameState `json:"info"`
}
