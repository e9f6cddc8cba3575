package query

import (
	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/models"
)

// BlockView is the full block document: the header entry joined with
// coinbase-derived facts and, on request, the normalized transactions.
type BlockView struct {
	Height          uint64       `json:"height"`
	Hash            string       `json:"hash"`
	PrevBlock       string       `json:"prevBlock,omitempty"`
	MerkleRoot      string       `json:"merkleRoot,omitempty"`
	WitnessRoot     string       `json:"witnessRoot,omitempty"`
	TreeRoot        string       `json:"treeRoot,omitempty"`
	ReservedRoot    string       `json:"reservedRoot,omitempty"`
	Mask            string       `json:"mask,omitempty"`
	Time            int64        `json:"time"`
	MedianTime      int64        `json:"medianTime,omitempty"`
	Bits            uint32       `json:"bits"`
	Difficulty      float64      `json:"difficulty"`
	Chainwork       string       `json:"chainwork,omitempty"`
	Nonce           uint64       `json:"nonce"`
	ExtraNonce      string       `json:"extraNonce,omitempty"`
	NextHash        string       `json:"nextHash,omitempty"`
	TxCount         int          `json:"txCount"`
	Reward          uint64       `json:"reward"`
	Fees            uint64       `json:"fees"`
	AverageFee      float64      `json:"averageFee"`
	Miner           string       `json:"miner"`
	MinerAddress    string       `json:"minerAddress,omitempty"`
	Pool            *models.Pool `json:"pool,omitempty"`
	CoinbaseWitness []string     `json:"coinbaseWitness,omitempty"`
	Txs             []*TxView    `json:"txs,omitempty"`
}

// TxView is a normalized transaction: inputs collapsed to value and
// address, outputs annotated by covenant action.
type TxView struct {
	Txid     string        `json:"txid"`
	Height   int64         `json:"height"`
	Block    string        `json:"block,omitempty"`
	Time     int64         `json:"time"`
	Index    int           `json:"index"`
	Version  int           `json:"version"`
	Locktime uint64        `json:"locktime"`
	Fee      uint64        `json:"fee"`
	Inputs   []*InputView  `json:"inputs"`
	Outputs  []*OutputView `json:"outputs"`
}

// InputView is one normalized input. Exactly one of the three shapes
// applies: a resolved coin (value+address), the coinbase subsidy
// input, or an airdrop claim with no known prevout.
type InputView struct {
	Value    uint64 `json:"value,omitempty"`
	Address  string `json:"address,omitempty"`
	Coinbase bool   `json:"coinbase,omitempty"`
	Airdrop  bool   `json:"airdrop,omitempty"`
}

// OutputView is one normalized output. Value is present for the
// actions that carry one (NONE, BID, REVEAL); name fields are filled
// for name covenants.
type OutputView struct {
	Value    *uint64 `json:"value,omitempty"`
	Address  string  `json:"address"`
	Action   string  `json:"action"`
	Name     string  `json:"name,omitempty"`
	NameHash string  `json:"nameHash,omitempty"`
	Nonce    string  `json:"nonce,omitempty"`
}

// NameView is the /names/:name document: stored auction facts merged
// with the node's live name state.
type NameView struct {
	Name        string          `json:"name"`
	NameHash    string          `json:"nameHash"`
	State       string          `json:"state"`
	NextState   string          `json:"nextState,omitempty"`
	Reserved    bool            `json:"reserved"`
	Week        int             `json:"week"`
	Release     uint64          `json:"release"`
	Open        uint64          `json:"open,omitempty"`
	Height      uint64          `json:"height,omitempty"`
	Value       uint64          `json:"value"`
	Highest     uint64          `json:"highest"`
	Renewal     uint64          `json:"renewal,omitempty"`
	Renewals    uint64          `json:"renewals"`
	Transfer    uint64          `json:"transfer,omitempty"`
	Revoked     uint64          `json:"revoked,omitempty"`
	Claimed     uint64          `json:"claimed,omitempty"`
	Weak        bool            `json:"weak"`
	Registered  bool            `json:"registered"`
	Expired     bool            `json:"expired"`
	Owner       *chain.Outpoint `json:"owner,omitempty"`
	BlocksUntil int64           `json:"blocksUntil,omitempty"`
	Bids        []*BidView      `json:"bids"`
}

// BidView is one bid on a name's auction page. Value is set once the
// bid's reveal is known; Win marks the highest revealed bid.
type BidView struct {
	Txid     string  `json:"txid"`
	Index    uint32  `json:"index"`
	Height   uint64  `json:"height"`
	Time     int64   `json:"time"`
	Lockup   uint64  `json:"lockup"`
	Revealed bool    `json:"revealed"`
	Value    *uint64 `json:"value,omitempty"`
	Win      bool    `json:"win"`
}

// HistoryItem is one covenant event in a name's history.
type HistoryItem struct {
	Txid   string  `json:"txid"`
	Index  uint32  `json:"index"`
	Height uint64  `json:"height"`
	Time   int64   `json:"time"`
	Action string  `json:"action"`
	Value  *uint64 `json:"value,omitempty"`
}

// AddressView is the /addresses/:hash balance document. Amounts are
// base units; Unconfirmed is the signed mempool delta.
type AddressView struct {
	Hash        string `json:"hash"`
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
	Received    uint64 `json:"received"`
	Spent       uint64 `json:"spent"`
}

// SummaryView is the /summary document.
type SummaryView struct {
	Network         string  `json:"network"`
	ChainWork       string  `json:"chainWork"`
	Difficulty      float64 `json:"difficulty"`
	Hashrate        float64 `json:"hashrate"`
	Unconfirmed     int     `json:"unconfirmed"`
	UnconfirmedSize int64   `json:"unconfirmedSize"`
	RegisteredNames int64   `json:"registeredNames"`
}

// StatusView is the /status document: the node's own state.
type StatusView struct {
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	Key            string  `json:"key"`
	Network        string  `json:"network"`
	Progress       float64 `json:"progress"`
	Version        string  `json:"version"`
	Agent          string  `json:"agent"`
	Connections    int     `json:"connections"`
	Height         uint64  `json:"height"`
	Difficulty     float64 `json:"difficulty"`
	Uptime         int64   `json:"uptime"`
	TotalBytesRecv int64   `json:"totalBytesRecv"`
	TotalBytesSent int64   `json:"totalBytesSent"`
}

// SeriesPoint is one chart sample. Date is in milliseconds for direct
// charting.
type SeriesPoint struct {
	Date  int64   `json:"date"`
	Value float64 `json:"value"`
}

// SearchResult is one /search hit.
type SearchResult struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// DistributionItem is one pool's share of the mined-block window.
type DistributionItem struct {
	PoolName string `json:"poolName"`
	URL      string `json:"url,omitempty"`
	Count    int64  `json:"count"`
}

// DistributionView is the /pool/distribution document.
type DistributionView struct {
	Total int64              `json:"total"`
	Items []DistributionItem `json:"items"`
}

// BlockPage pages stored block rows newest first.
type BlockPage struct {
	Total  uint64         `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Result []models.Block `json:"result"`
}

// TxPage pages normalized transactions.
type TxPage struct {
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Result []*TxView `json:"result"`
}

// MempoolPage pages the node's unconfirmed transactions.
type MempoolPage struct {
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Items  []*TxView `json:"items"`
}

// NamePage pages name listings. Result items are models.Name rows for
// status and top-value listings and repository.TopBid rows for the
// weekBid/monthBid listings.
type NamePage struct {
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Result interface{} `json:"result"`
}

// HistoryPage pages a name's covenant history.
type HistoryPage struct {
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Result []HistoryItem `json:"result"`
}

// PeerPage pages the node's peer list.
type PeerPage struct {
	Total  int           `json:"total"`
	Result []*chain.Peer `json:"result"`
}
