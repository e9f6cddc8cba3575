package models

// Block represents the 'blocks' table: one row per indexed block.
type Block struct {
	Height       uint64  `json:"height"`
	Hash         string  `json:"hash"`
	PrevHash     string  `json:"prevHash,omitempty"`
	Difficulty   float64 `json:"difficulty"`
	Time         int64   `json:"time"`
	Txs          int     `json:"txs"`
	Miner        string  `json:"miner"`
	MinerAddress string  `json:"minerAddress,omitempty"`
}

// Tx represents the 'txs' table. Addresses is the set of address
// hashes appearing in the transaction's inputs or outputs, stored as
// TEXT[] behind a GIN index.
type Tx struct {
	Txid      string   `json:"txid"`
	Height    uint64   `json:"height"`
	BlockHash string   `json:"hash"`
	Time      int64    `json:"time"`
	Addresses []string `json:"addresses,omitempty"`
}

// Coin represents the 'coins' table: one row per transaction output.
// A row is mutated only when a later block spends it (Spent flips to
// true) or, for name records, never. SpentTxid/SpentIndex are stored
// as NULL columns while Spent is false.
type Coin struct {
	Txid          string   `json:"txid"`
	Index         uint32   `json:"index"`
	Height        uint64   `json:"height"`
	Time          int64    `json:"time"`
	Address       string   `json:"address"`
	Value         uint64   `json:"value"`
	CovenantType  int      `json:"covenantType"`
	CovenantItems []string `json:"covenantItems,omitempty"`
	NameHash      string   `json:"nameHash,omitempty"`
	Coinbase      bool     `json:"coinbase,omitempty"`
	Spent         bool     `json:"spent"`
	SpentTxid     string   `json:"spentTxid,omitempty"`
	SpentIndex    uint32   `json:"spentIndex,omitempty"`
}

// Name represents the 'names' table. Value is the second-highest
// revealed bid so far (the price the winner pays); Highest is the top
// reveal. Value <= Highest at all times.
type Name struct {
	NameHash string `json:"nameHash"`
	Name     string `json:"name"`
	Open     uint64 `json:"open"`
	Value    uint64 `json:"value"`
	Highest  uint64 `json:"highest"`
}

// Summary represents the 'summaries' table: one row per UTC day that
// contains at least one block, keyed by the day's start time in Unix
// seconds. TotalTxs, Supply and Burned are cumulative across days;
// Difficulty is a per-day sum (divide by Blocks for the daily
// average). Supply and Burned are in whole coins.
type Summary struct {
	Time       int64   `json:"time"`
	Blocks     int64   `json:"blocks"`
	Txs        int64   `json:"txs"`
	TotalTxs   int64   `json:"totalTxs"`
	Difficulty float64 `json:"difficulty"`
	Supply     float64 `json:"supply"`
	Burned     float64 `json:"burned"`
}

// Pool is one entry of the mining-pool attribution table, loaded from
// the pools file at startup. Coinbase attribution walks the table and
// the first address match wins.
type Pool struct {
	Name      string   `json:"poolName" yaml:"-"`
	URL       string   `json:"url" yaml:"url"`
	Addresses []string `json:"-" yaml:"addresses"`
}

// PeerLocation is one '/mapdata' entry: a peer joined with its GeoIP
// coordinates.
type PeerLocation struct {
	Host      string  `json:"host"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
