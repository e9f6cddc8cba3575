// Package query composes explorer responses from the indexed store
// and the upstream node. The store answers everything the indexer has
// written (blocks, transactions, coins, names, daily summaries); the
// node supplies the live consensus facts the index does not carry
// (name state, mempool, peers, coin views inside block bodies).
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/geoip"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

// ErrNotFound marks lookups for entities neither the store nor the
// node knows about.
var ErrNotFound = errors.New("query: not found")

// ErrInput marks rejected request parameters. The HTTP layer maps it
// to a 400 response.
var ErrInput = errors.New("query: invalid input")

// Store is the slice of the repository the engine reads.
type Store interface {
	Head(ctx context.Context) (uint64, error)
	GetBlockRecord(ctx context.Context, height uint64) (*models.Block, error)
	GetBlockRecordByHash(ctx context.Context, hash string) (*models.Block, error)
	ListBlocks(ctx context.Context, limit, offset int) ([]models.Block, error)
	CountBlocks(ctx context.Context) (uint64, error)
	BlockTimeBounds(ctx context.Context, from, to uint64) (minTime, maxTime int64, ok bool, err error)
	GetTxRecord(ctx context.Context, txid string) (*models.Tx, error)
	CountTxs(ctx context.Context) (int64, error)
	TxidsByAddress(ctx context.Context, address string, limit, offset int) ([]string, error)
	CountTxsByAddress(ctx context.Context, address string) (int64, error)
	GetCoin(ctx context.Context, txid string, index uint32) (*models.Coin, error)
	CoinsByNameHash(ctx context.Context, nameHash string) ([]models.Coin, error)
	CoinsByNameHashPage(ctx context.Context, nameHash string, limit, offset int) ([]models.Coin, error)
	CountCoinsByNameHash(ctx context.Context, nameHash string) (int64, error)
	AddressBalance(ctx context.Context, address string) (repository.AddressTotals, error)
	RegisteredNamesCount(ctx context.Context) (int64, error)
	GetNameRecord(ctx context.Context, nameHash string) (*models.Name, error)
	NamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64, limit, offset int) ([]models.Name, error)
	CountNamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64) (int64, error)
	NamesOpenedBefore(ctx context.Context, maxOpen uint64, limit, offset int) ([]models.Name, error)
	CountNamesOpenedBefore(ctx context.Context, maxOpen uint64) (int64, error)
	TopNamesByValue(ctx context.Context, limit, offset int) ([]models.Name, error)
	TopBids(ctx context.Context, sinceTime int64, k int) ([]repository.TopBid, error)
	PoolDistribution(ctx context.Context, startTime, endTime int64) ([]repository.PoolCount, error)
	SummariesInRange(ctx context.Context, startTime, endTime int64) ([]models.Summary, error)
}

// Node is the slice of the chain client the engine reads.
type Node interface {
	Tip(ctx context.Context) (*chain.Tip, error)
	Info(ctx context.Context) (*chain.NodeInfo, error)
	EntryByHeight(ctx context.Context, height uint64) (*chain.Entry, error)
	BlockByHeight(ctx context.Context, height uint64) (*chain.Block, error)
	Tx(ctx context.Context, txid string) (*chain.Tx, error)
	TxsByAddress(ctx context.Context, address string) ([]*chain.Tx, error)
	Header(ctx context.Context, hash string) (*chain.BlockHeaderInfo, error)
	NameInfo(ctx context.Context, name string) (*chain.NameInfo, error)
	NameByHash(ctx context.Context, nameHash string) (string, error)
	ChainInfo(ctx context.Context) (*chain.ChainInfo, error)
	MempoolTxids(ctx context.Context) ([]string, error)
	MempoolInfo(ctx context.Context) (*chain.MempoolInfo, error)
	Peers(ctx context.Context) ([]*chain.Peer, error)
	NetTotals(ctx context.Context) (*chain.NetTotals, error)
	RPCInfo(ctx context.Context) (*chain.NodeInfoRPC, error)
}

// Config carries the engine's collaborators. Geo may be nil when no
// geoip table is configured; /mapdata then returns an empty list.
type Config struct {
	Network *consensus.Network
	Pools   []models.Pool
	Geo     *geoip.Table
}

// Engine answers explorer queries. It is safe for concurrent use.
type Engine struct {
	store Store
	node  Node
	cfg   Config

	agg atomic.Pointer[Aggregates]
}

// New builds an engine. A nil network falls back to mainnet
// parameters.
func New(store Store, node Node, cfg Config) *Engine {
	if cfg.Network == nil {
		cfg.Network = consensus.Main()
	}
	return &Engine{store: store, node: node, cfg: cfg}
}

// Head reports the highest block height the store has indexed.
func (e *Engine) Head(ctx context.Context) (uint64, error) {
	return e.store.Head(ctx)
}

// mapNodeErr folds the chain client's not-found sentinel into the
// engine's.
func mapNodeErr(err error) error {
	if errors.Is(err, chain.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// clampPage validates limit/offset, applying the default when limit
// is unset and rejecting limits beyond max.
func clampPage(limit, offset, def, max int) (int, int, error) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		return 0, 0, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrInput, limit, max)
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// poolFor matches a coinbase payout address against the pool table.
// Unmatched miners attribute to "unknown" with no pool reference.
func (e *Engine) poolFor(addr string) *models.Pool {
	for i := range e.cfg.Pools {
		for _, a := range e.cfg.Pools[i].Addresses {
			if a == addr {
				return &e.cfg.Pools[i]
			}
		}
	}
	return nil
}

// addressParam resolves a request's address parameter. Bech32 input
// yields both the witness-program hex the store indexes and the
// original string for node queries; a bare 40/64-char hex string is
// taken as an already-hashed program.
func (e *Engine) addressParam(param string) (hashHex, bech string, err error) {
	param = strings.TrimSpace(param)
	if a, err := e.cfg.Network.DecodeAddress(param); err == nil {
		return a.HashHex(), param, nil
	}
	lower := strings.ToLower(param)
	if (len(lower) == 40 || len(lower) == 64) && isHex(lower) {
		return lower, "", nil
	}
	return "", "", fmt.Errorf("%w: malformed address %q", ErrInput, param)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return len(s) > 0
}
