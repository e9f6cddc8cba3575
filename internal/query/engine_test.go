package query

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/geoip"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// fakeStore implements Store over in-memory maps.
type fakeStore struct {
	head       uint64
	blocks     map[uint64]models.Block
	txs        map[string]models.Tx
	txCount    int64
	coins      map[string]models.Coin
	nameCoins  map[string][]models.Coin
	names      map[string]models.Name
	balances   map[string]repository.AddressTotals
	registered int64
	summaries  []models.Summary
	poolCounts []repository.PoolCount
	topNames   []models.Name
	topBids    []repository.TopBid

	boundsMin, boundsMax int64
	boundsOK             bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blocks:    make(map[uint64]models.Block),
		txs:       make(map[string]models.Tx),
		coins:     make(map[string]models.Coin),
		nameCoins: make(map[string][]models.Coin),
		names:     make(map[string]models.Name),
		balances:  make(map[string]repository.AddressTotals),
	}
}

func coinKey(txid string, index uint32) string { return fmt.Sprintf("%s/%d", txid, index) }

func (s *fakeStore) Head(ctx context.Context) (uint64, error) { return s.head, nil }

func (s *fakeStore) GetBlockRecord(ctx context.Context, height uint64) (*models.Block, error) {
	if b, ok := s.blocks[height]; ok {
		return &b, nil
	}
	return nil, nil
}

func (s *fakeStore) GetBlockRecordByHash(ctx context.Context, hash string) (*models.Block, error) {
	for _, b := range s.blocks {
		if b.Hash == hash {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListBlocks(ctx context.Context, limit, offset int) ([]models.Block, error) {
	heights := make([]uint64, 0, len(s.blocks))
	for h := range s.blocks {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] > heights[j] })
	out := make([]models.Block, 0, limit)
	for i := offset; i < len(heights) && len(out) < limit; i++ {
		out = append(out, s.blocks[heights[i]])
	}
	return out, nil
}

func (s *fakeStore) CountBlocks(ctx context.Context) (uint64, error) {
	return uint64(len(s.blocks)), nil
}

func (s *fakeStore) BlockTimeBounds(ctx context.Context, from, to uint64) (int64, int64, bool, error) {
	return s.boundsMin, s.boundsMax, s.boundsOK, nil
}

func (s *fakeStore) GetTxRecord(ctx context.Context, txid string) (*models.Tx, error) {
	if t, ok := s.txs[txid]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *fakeStore) CountTxs(ctx context.Context) (int64, error) { return s.txCount, nil }

func (s *fakeStore) addressTxs(address string) []models.Tx {
	matched := make([]models.Tx, 0)
	for _, t := range s.txs {
		for _, a := range t.Addresses {
			if a == address {
				matched = append(matched, t)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Height != matched[j].Height {
			return matched[i].Height > matched[j].Height
		}
		return matched[i].Txid < matched[j].Txid
	})
	return matched
}

func (s *fakeStore) TxidsByAddress(ctx context.Context, address string, limit, offset int) ([]string, error) {
	matched := s.addressTxs(address)
	out := make([]string, 0, limit)
	for i := offset; i < len(matched) && len(out) < limit; i++ {
		out = append(out, matched[i].Txid)
	}
	return out, nil
}

func (s *fakeStore) CountTxsByAddress(ctx context.Context, address string) (int64, error) {
	return int64(len(s.addressTxs(address))), nil
}

func (s *fakeStore) GetCoin(ctx context.Context, txid string, index uint32) (*models.Coin, error) {
	if c, ok := s.coins[coinKey(txid, index)]; ok {
		return &c, nil
	}
	return nil, nil
}

func (s *fakeStore) CoinsByNameHash(ctx context.Context, nameHash string) ([]models.Coin, error) {
	return s.nameCoins[nameHash], nil
}

func (s *fakeStore) CoinsByNameHashPage(ctx context.Context, nameHash string, limit, offset int) ([]models.Coin, error) {
	coins := append([]models.Coin(nil), s.nameCoins[nameHash]...)
	sort.Slice(coins, func(i, j int) bool { return coins[i].Height > coins[j].Height })
	lo, hi := sliceBounds(len(coins), limit, offset)
	return coins[lo:hi], nil
}

func (s *fakeStore) CountCoinsByNameHash(ctx context.Context, nameHash string) (int64, error) {
	return int64(len(s.nameCoins[nameHash])), nil
}

func (s *fakeStore) AddressBalance(ctx context.Context, address string) (repository.AddressTotals, error) {
	return s.balances[address], nil
}

func (s *fakeStore) RegisteredNamesCount(ctx context.Context) (int64, error) {
	return s.registered, nil
}

func (s *fakeStore) GetNameRecord(ctx context.Context, nameHash string) (*models.Name, error) {
	if n, ok := s.names[nameHash]; ok {
		return &n, nil
	}
	return nil, nil
}

func (s *fakeStore) namesInWindow(minOpen, maxOpen uint64) []models.Name {
	out := make([]models.Name, 0)
	for _, n := range s.names {
		if n.Open >= minOpen && n.Open <= maxOpen {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Open != out[j].Open {
			return out[i].Open > out[j].Open
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *fakeStore) NamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64, limit, offset int) ([]models.Name, error) {
	names := s.namesInWindow(minOpen, maxOpen)
	lo, hi := sliceBounds(len(names), limit, offset)
	return names[lo:hi], nil
}

func (s *fakeStore) CountNamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64) (int64, error) {
	return int64(len(s.namesInWindow(minOpen, maxOpen))), nil
}

func (s *fakeStore) NamesOpenedBefore(ctx context.Context, maxOpen uint64, limit, offset int) ([]models.Name, error) {
	return s.NamesByOpenWindow(ctx, 0, maxOpen, limit, offset)
}

func (s *fakeStore) CountNamesOpenedBefore(ctx context.Context, maxOpen uint64) (int64, error) {
	return s.CountNamesByOpenWindow(ctx, 0, maxOpen)
}

func (s *fakeStore) TopNamesByValue(ctx context.Context, limit, offset int) ([]models.Name, error) {
	lo, hi := sliceBounds(len(s.topNames), limit, offset)
	return s.topNames[lo:hi], nil
}

func (s *fakeStore) TopBids(ctx context.Context, sinceTime int64, k int) ([]repository.TopBid, error) {
	return s.topBids, nil
}

func (s *fakeStore) PoolDistribution(ctx context.Context, startTime, endTime int64) ([]repository.PoolCount, error) {
	return s.poolCounts, nil
}

func (s *fakeStore) SummariesInRange(ctx context.Context, startTime, endTime int64) ([]models.Summary, error) {
	out := make([]models.Summary, 0)
	for _, sm := range s.summaries {
		if sm.Time >= startTime && sm.Time <= endTime {
			out = append(out, sm)
		}
	}
	return out, nil
}

// fakeNode implements Node over in-memory maps; missing entries yield
// chain.ErrNotFound like the real client.
type fakeNode struct {
	tip       *chain.Tip
	info      *chain.NodeInfo
	entries   map[uint64]*chain.Entry
	blocks    map[uint64]*chain.Block
	txs       map[string]*chain.Tx
	addrTxs   map[string][]*chain.Tx
	headers   map[string]*chain.BlockHeaderInfo
	nameInfos map[string]*chain.NameInfo
	hashNames map[string]string
	chainInfo *chain.ChainInfo
	mempool   []string
	mpInfo    *chain.MempoolInfo
	peers     []*chain.Peer
	netTotals *chain.NetTotals
	rpcInfo   *chain.NodeInfoRPC
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		entries:   make(map[uint64]*chain.Entry),
		blocks:    make(map[uint64]*chain.Block),
		txs:       make(map[string]*chain.Tx),
		addrTxs:   make(map[string][]*chain.Tx),
		headers:   make(map[string]*chain.BlockHeaderInfo),
		nameInfos: make(map[string]*chain.NameInfo),
		hashNames: make(map[string]string),
	}
}

func (n *fakeNode) Tip(ctx context.Context) (*chain.Tip, error) {
	if n.tip == nil {
		return nil, chain.ErrNotFound
	}
	return n.tip, nil
}

func (n *fakeNode) Info(ctx context.Context) (*chain.NodeInfo, error) {
	if n.info == nil {
		return nil, chain.ErrNotFound
	}
	return n.info, nil
}

func (n *fakeNode) EntryByHeight(ctx context.Context, height uint64) (*chain.Entry, error) {
	if e, ok := n.entries[height]; ok {
		return e, nil
	}
	return nil, chain.ErrNotFound
}

func (n *fakeNode) BlockByHeight(ctx context.Context, height uint64) (*chain.Block, error) {
	if b, ok := n.blocks[height]; ok {
		return b, nil
	}
	return nil, chain.ErrNotFound
}

func (n *fakeNode) Tx(ctx context.Context, txid string) (*chain.Tx, error) {
	if t, ok := n.txs[txid]; ok {
		return t, nil
	}
	return nil, chain.ErrNotFound
}

func (n *fakeNode) TxsByAddress(ctx context.Context, address string) ([]*chain.Tx, error) {
	return n.addrTxs[address], nil
}

func (n *fakeNode) Header(ctx context.Context, hash string) (*chain.BlockHeaderInfo, error) {
	if h, ok := n.headers[hash]; ok {
		return h, nil
	}
	return nil, chain.ErrNotFound
}

func (n *fakeNode) NameInfo(ctx context.Context, name string) (*chain.NameInfo, error) {
	if ni, ok := n.nameInfos[name]; ok {
		return ni, nil
	}
	return nil, chain.ErrNotFound
}

func (n *fakeNode) NameByHash(ctx context.Context, nameHash string) (string, error) {
	if name, ok := n.hashNames[nameHash]; ok {
		return name, nil
	}
	return "", chain.ErrNotFound
}

func (n *fakeNode) ChainInfo(ctx context.Context) (*chain.ChainInfo, error) {
	if n.chainInfo == nil {
		return nil, chain.ErrNotFound
	}
	return n.chainInfo, nil
}

func (n *fakeNode) MempoolTxids(ctx context.Context) ([]string, error) { return n.mempool, nil }

func (n *fakeNode) MempoolInfo(ctx context.Context) (*chain.MempoolInfo, error) {
	if n.mpInfo == nil {
		return nil, chain.ErrNotFound
	}
	return n.mpInfo, nil
}

func (n *fakeNode) Peers(ctx context.Context) ([]*chain.Peer, error) { return n.peers, nil }

func (n *fakeNode) NetTotals(ctx context.Context) (*chain.NetTotals, error) {
	if n.netTotals == nil {
		return nil, chain.ErrNotFound
	}
	return n.netTotals, nil
}

func (n *fakeNode) RPCInfo(ctx context.Context) (*chain.NodeInfoRPC, error) {
	if n.rpcInfo == nil {
		return nil, chain.ErrNotFound
	}
	return n.rpcInfo, nil
}

func testEngine(store *fakeStore, node *fakeNode, pools ...models.Pool) *Engine {
	return New(store, node, Config{Network: consensus.Regtest(), Pools: pools})
}

// testAddr builds a valid regtest bech32 address whose 20-byte
// program repeats the given byte.
func testAddr(t *testing.T, b byte) string {
	t.Helper()
	conv, err := bech32.ConvertBits(bytes.Repeat([]byte{b}, 20), 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	addr, err := bech32.Encode("rs", append([]byte{0}, conv...))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return addr
}

func coinbaseInput(witness ...string) *chain.TxInput {
	return &chain.TxInput{
		Prevout: chain.Outpoint{Hash: strings.Repeat("0", 64), Index: 0xffffffff},
		Witness: witness,
	}
}

func TestGetBlockComputesFeesAndPool(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	minerAddr := testAddr(t, 0x11)
	otherAddr := testAddr(t, 0x22)

	entry := &chain.Entry{
		Hash:      strings.Repeat("ab", 32),
		Height:    5,
		Time:      1600000000,
		Bits:      0x1d00ffff,
		Chainwork: "0200",
	}
	node.entries[5] = entry
	cb := &chain.Tx{
		Hash:    strings.Repeat("c", 64),
		Inputs:  []*chain.TxInput{coinbaseInput("deadbeef")},
		Outputs: []*chain.TxOutput{{Value: 2000e6 + 700, Address: minerAddr}},
	}
	spend := &chain.Tx{
		Hash: strings.Repeat("d", 64),
		Inputs: []*chain.TxInput{{
			Prevout: chain.Outpoint{Hash: strings.Repeat("e", 64), Index: 0},
			Coin:    &chain.Coin{Value: 1000, Address: otherAddr},
		}},
		Outputs: []*chain.TxOutput{{Value: 300, Address: otherAddr}},
	}
	node.blocks[5] = &chain.Block{Hash: entry.Hash, Height: 5, Time: entry.Time, Txs: []*chain.Tx{cb, spend}}
	node.headers[entry.Hash] = &chain.BlockHeaderInfo{MedianTime: 1599999000, NextBlockHash: strings.Repeat("f", 64)}

	eng := testEngine(store, node, models.Pool{Name: "TestPool", URL: "https://pool.test", Addresses: []string{minerAddr}})
	v, err := eng.GetBlock(context.Background(), 5, true)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if v.Reward != 2000e6 {
		t.Fatalf("reward = %d, want %d", v.Reward, uint64(2000e6))
	}
	if v.Fees != 700 {
		t.Fatalf("fees = %d, want 700", v.Fees)
	}
	if v.AverageFee != 350 {
		t.Fatalf("averageFee = %v, want 350", v.AverageFee)
	}
	if v.Miner != "TestPool" || v.Pool == nil || v.Pool.URL != "https://pool.test" {
		t.Fatalf("miner = %q pool = %+v", v.Miner, v.Pool)
	}
	if v.MinerAddress != minerAddr {
		t.Fatalf("minerAddress = %q", v.MinerAddress)
	}
	if v.MedianTime != 1599999000 || v.NextHash != strings.Repeat("f", 64) {
		t.Fatalf("header fields not joined: %+v", v)
	}
	if len(v.CoinbaseWitness) != 1 || v.CoinbaseWitness[0] != "deadbeef" {
		t.Fatalf("coinbaseWitness = %v", v.CoinbaseWitness)
	}
	if v.TxCount != 2 || len(v.Txs) != 2 {
		t.Fatalf("txCount = %d len(txs) = %d", v.TxCount, len(v.Txs))
	}

	cbv := v.Txs[0]
	if !cbv.Inputs[0].Coinbase || cbv.Inputs[0].Value != 2000e6 {
		t.Fatalf("coinbase input = %+v", cbv.Inputs[0])
	}
	if cbv.Height != 5 || cbv.Block != entry.Hash || cbv.Time != entry.Time || cbv.Index != 0 {
		t.Fatalf("block frame not applied: %+v", cbv)
	}
	sp := v.Txs[1]
	if sp.Fee != 700 {
		t.Fatalf("spend fee = %d, want 700", sp.Fee)
	}
	if sp.Inputs[0].Value != 1000 || sp.Inputs[0].Address != otherAddr {
		t.Fatalf("spend input = %+v", sp.Inputs[0])
	}
}

func TestGetBlockNotFound(t *testing.T) {
	eng := testEngine(newFakeStore(), newFakeNode())
	if _, err := eng.GetBlock(context.Background(), 99, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetBlocksPaging(t *testing.T) {
	store := newFakeStore()
	for h := uint64(1); h <= 3; h++ {
		store.blocks[h] = models.Block{Height: h, Hash: fmt.Sprintf("h%d", h)}
	}
	eng := testEngine(store, newFakeNode())
	ctx := context.Background()

	if _, err := eng.GetBlocks(ctx, 100, 0); !errors.Is(err, ErrInput) {
		t.Fatalf("oversized limit: expected ErrInput, got %v", err)
	}
	if _, err := eng.GetBlocks(ctx, 10, 5); !errors.Is(err, ErrInput) {
		t.Fatalf("offset beyond tip: expected ErrInput, got %v", err)
	}

	page, err := eng.GetBlocks(ctx, 2, 1)
	if err != nil {
		t.Fatalf("GetBlocks: %v", err)
	}
	if page.Total != 3 || len(page.Result) != 2 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Result))
	}
	if page.Result[0].Height != 2 || page.Result[1].Height != 1 {
		t.Fatalf("unexpected page order: %+v", page.Result)
	}
}

func TestNormalizeOutputActions(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	addr := testAddr(t, 0x33)
	hashA := strings.Repeat("aa", 32)
	hashB := strings.Repeat("bb", 32)
	store.names[hashB] = models.Name{NameHash: hashB, Name: "fire"}

	cov := func(covType int, items ...string) *chain.Covenant {
		return &chain.Covenant{Type: covType, Action: consensus.CovenantName(covType), Items: items}
	}
	txid := strings.Repeat("1", 64)
	tx := &chain.Tx{
		Hash:   txid,
		Height: 8,
		Time:   1600000600,
		Inputs: []*chain.TxInput{
			{Prevout: chain.Outpoint{Hash: strings.Repeat("2", 64), Index: 0}, Coin: &chain.Coin{Value: 500, Address: addr}},
			{Prevout: chain.Outpoint{Hash: strings.Repeat("3", 64), Index: 1}},
		},
		Outputs: []*chain.TxOutput{
			{Value: 100, Address: addr},
			{Value: 0, Address: addr, Covenant: cov(consensus.CovenantOpen, hashA, "00000000", "7761746572")},
			{Value: 5e6, Address: addr, Covenant: cov(consensus.CovenantBid, hashB, "00000000", "66697265")},
			{Value: 3e6, Address: addr, Covenant: cov(consensus.CovenantReveal, hashB, "00000000", "6e6f6e6365")},
			{Value: 2e6, Address: addr, Covenant: cov(consensus.CovenantRedeem, hashB, "00000000")},
			{Value: 0, Address: addr, Covenant: cov(consensus.CovenantRegister, hashB, "0000", "00")},
		},
	}
	node.txs[txid] = tx

	eng := testEngine(store, node)
	v, err := eng.GetTransaction(context.Background(), txid)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if !v.Inputs[1].Airdrop {
		t.Fatalf("unresolved input should mark airdrop: %+v", v.Inputs[1])
	}
	if v.Fee != 0 {
		t.Fatalf("fee should stay unknown with unresolved inputs, got %d", v.Fee)
	}

	outs := v.Outputs
	if outs[0].Action != "NONE" || outs[0].Value == nil || *outs[0].Value != 100 {
		t.Fatalf("NONE output = %+v", outs[0])
	}
	if outs[1].Action != "OPEN" || outs[1].Name != "water" || outs[1].Value != nil || outs[1].NameHash != hashA {
		t.Fatalf("OPEN output = %+v", outs[1])
	}
	if outs[2].Action != "BID" || outs[2].Name != "fire" || outs[2].Value == nil || *outs[2].Value != 5e6 {
		t.Fatalf("BID output = %+v", outs[2])
	}
	if outs[3].Action != "REVEAL" || outs[3].Nonce != "6e6f6e6365" || outs[3].Value == nil || *outs[3].Value != 3e6 {
		t.Fatalf("REVEAL output = %+v", outs[3])
	}
	if outs[3].Name != "fire" {
		t.Fatalf("REVEAL name should resolve from store, got %q", outs[3].Name)
	}
	if outs[4].Action != "REDEEM" || outs[4].Value != nil {
		t.Fatalf("REDEEM output = %+v", outs[4])
	}
	if outs[5].Action != "REGISTER" || outs[5].Name != "fire" {
		t.Fatalf("REGISTER output = %+v", outs[5])
	}
}

func TestGetTransactionRejectsMalformed(t *testing.T) {
	eng := testEngine(newFakeStore(), newFakeNode())
	if _, err := eng.GetTransaction(context.Background(), "not-a-txid"); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func TestGetTransactionsByHeightPages(t *testing.T) {
	node := newFakeNode()
	txs := make([]*chain.Tx, 0, 3)
	for i := 0; i < 3; i++ {
		txs = append(txs, &chain.Tx{
			Hash:    strings.Repeat(fmt.Sprintf("%d", i+1), 64),
			Outputs: []*chain.TxOutput{{Value: uint64(i)}},
			Inputs:  []*chain.TxInput{coinbaseInput()},
		})
	}
	node.blocks[7] = &chain.Block{Hash: strings.Repeat("ab", 32), Height: 7, Time: 1600000000, Txs: txs}

	eng := testEngine(newFakeStore(), node)
	page, err := eng.GetTransactionsByHeight(context.Background(), 7, 2, 1)
	if err != nil {
		t.Fatalf("GetTransactionsByHeight: %v", err)
	}
	if page.Total != 3 || len(page.Result) != 2 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Result))
	}
	if page.Result[0].Index != 1 || page.Result[1].Index != 2 {
		t.Fatalf("indices = %d,%d", page.Result[0].Index, page.Result[1].Index)
	}
}

func TestGetTransactionsByAddress(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	addr := testAddr(t, 0x44)
	hashHex := strings.Repeat("44", 20)

	t1 := strings.Repeat("1", 64)
	t2 := strings.Repeat("2", 64)
	store.txs[t1] = models.Tx{Txid: t1, Height: 10, Addresses: []string{hashHex}}
	store.txs[t2] = models.Tx{Txid: t2, Height: 12, Addresses: []string{hashHex}}
	store.txs[strings.Repeat("3", 64)] = models.Tx{Txid: strings.Repeat("3", 64), Height: 11, Addresses: []string{"ffff"}}
	node.txs[t1] = &chain.Tx{Hash: t1, Height: 10}
	node.txs[t2] = &chain.Tx{Hash: t2, Height: 12}

	eng := testEngine(store, node)
	page, err := eng.GetTransactionsByAddress(context.Background(), addr, 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionsByAddress: %v", err)
	}
	if page.Total != 2 || len(page.Result) != 2 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Result))
	}
	if page.Result[0].Txid != t2 || page.Result[1].Txid != t1 {
		t.Fatalf("unexpected order: %s, %s", page.Result[0].Txid, page.Result[1].Txid)
	}
}

func TestGetTransactionsWalksBack(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	store.head = 2
	store.txCount = 4
	for h := uint64(1); h <= 2; h++ {
		txs := make([]*chain.Tx, 0, 2)
		for i := uint64(0); i < 2; i++ {
			txs = append(txs, &chain.Tx{
				Hash:   fmt.Sprintf("%064d", h*10+i),
				Inputs: []*chain.TxInput{coinbaseInput()},
			})
		}
		node.blocks[h] = &chain.Block{Hash: fmt.Sprintf("b%d", h), Height: h, Time: 1600000000, Txs: txs}
	}

	eng := testEngine(store, node)
	page, err := eng.GetTransactions(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if page.Total != 4 || len(page.Result) != 3 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Result))
	}
	if page.Result[0].Height != 2 || page.Result[2].Height != 1 {
		t.Fatalf("walk order wrong: heights %d, %d", page.Result[0].Height, page.Result[2].Height)
	}
}

func TestGetMempoolSkipsDroppedTxids(t *testing.T) {
	node := newFakeNode()
	m1 := strings.Repeat("1", 64)
	m2 := strings.Repeat("2", 64)
	m3 := strings.Repeat("3", 64)
	node.mempool = []string{m1, m2, m3}
	node.txs[m1] = &chain.Tx{Hash: m1, Height: -1}
	node.txs[m3] = &chain.Tx{Hash: m3, Height: -1}

	eng := testEngine(newFakeStore(), node)
	page, err := eng.GetMempool(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("GetMempool: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("total = %d len = %d", page.Total, len(page.Items))
	}
}

func TestGetAddressBalanceAndMempool(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	addr := testAddr(t, 0x55)
	hashHex := strings.Repeat("55", 20)
	store.balances[hashHex] = repository.AddressTotals{Received: 5000, Spent: 1500}

	m1 := strings.Repeat("a", 64)
	node.addrTxs[addr] = []*chain.Tx{
		{
			Hash:   m1,
			Height: -1,
			Inputs: []*chain.TxInput{{
				Prevout: chain.Outpoint{Hash: strings.Repeat("b", 64), Index: 0},
				Coin:    &chain.Coin{Value: 200, Address: addr},
			}},
			Outputs: []*chain.TxOutput{{Value: 700, Address: addr}},
		},
		{Hash: strings.Repeat("c", 64), Height: 9, Outputs: []*chain.TxOutput{{Value: 999, Address: addr}}},
	}

	eng := testEngine(store, node)
	v, err := eng.GetAddress(context.Background(), addr)
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	if v.Hash != hashHex {
		t.Fatalf("hash = %q, want %q", v.Hash, hashHex)
	}
	if v.Received != 5000 || v.Spent != 1500 || v.Confirmed != 3500 {
		t.Fatalf("balance = %+v", v)
	}
	if v.Unconfirmed != 500 {
		t.Fatalf("unconfirmed = %d, want 500", v.Unconfirmed)
	}

	mp, err := eng.GetAddressMempool(context.Background(), addr)
	if err != nil {
		t.Fatalf("GetAddressMempool: %v", err)
	}
	if len(mp) != 1 || mp[0].Txid != m1 {
		t.Fatalf("mempool txs = %+v", mp)
	}

	if _, err := eng.GetAddress(context.Background(), "junk"); !errors.Is(err, ErrInput) {
		t.Fatalf("expected ErrInput for junk address, got %v", err)
	}
}

func TestHashrateFromChainwork(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	store.head = 200
	store.boundsMin = 1000
	store.boundsMax = 1100
	store.boundsOK = true
	node.entries[80] = &chain.Entry{Height: 80, Chainwork: "100"}
	node.entries[200] = &chain.Entry{Height: 200, Chainwork: "200"}

	eng := testEngine(store, node)
	rate, err := eng.Hashrate(context.Background())
	if err != nil {
		t.Fatalf("Hashrate: %v", err)
	}
	// (0x200-0x100) work over 100 seconds.
	if rate != 2.56 {
		t.Fatalf("rate = %v, want 2.56", rate)
	}
}

func TestHashrateEmptyStore(t *testing.T) {
	eng := testEngine(newFakeStore(), newFakeNode())
	rate, err := eng.Hashrate(context.Background())
	if err != nil || rate != 0 {
		t.Fatalf("rate = %v err = %v, want 0, nil", rate, err)
	}
}

func TestGetSummaryJoins(t *testing.T) {
	store := newFakeStore()
	node := newFakeNode()
	store.registered = 7
	node.chainInfo = &chain.ChainInfo{Chain: "regtest", Chainwork: "beef", Difficulty: 12.5}
	node.mpInfo = &chain.MempoolInfo{Size: 3, Bytes: 2048}

	eng := testEngine(store, node)
	v, err := eng.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if v.Network != "regtest" || v.ChainWork != "beef" || v.Difficulty != 12.5 {
		t.Fatalf("chain fields = %+v", v)
	}
	if v.Unconfirmed != 3 || v.UnconfirmedSize != 2048 {
		t.Fatalf("mempool fields = %+v", v)
	}
	if v.RegisteredNames != 7 {
		t.Fatalf("registeredNames = %d", v.RegisteredNames)
	}
}

func TestGetStatusJoins(t *testing.T) {
	node := newFakeNode()
	info := &chain.NodeInfo{Version: "7.0.0", Network: "regtest"}
	info.Chain.Height = 42
	info.Chain.Progress = 0.99
	info.Pool.Host = "0.0.0.0"
	info.Pool.Port = 44806
	info.Pool.IdentityKey = "idkey"
	info.Pool.Agent = "/hsd:7.0.0/"
	info.Pool.Inbound = 2
	info.Pool.Outbound = 6
	info.Time.Uptime = 3600
	node.info = info
	node.rpcInfo = &chain.NodeInfoRPC{Difficulty: 9.5}
	node.netTotals = &chain.NetTotals{TotalBytesRecv: 10, TotalBytesSent: 20}

	eng := testEngine(newFakeStore(), node)
	v, err := eng.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if v.Host != "0.0.0.0" || v.Port != 44806 || v.Key != "idkey" {
		t.Fatalf("pool fields = %+v", v)
	}
	if v.Connections != 8 || v.Height != 42 || v.Uptime != 3600 {
		t.Fatalf("node fields = %+v", v)
	}
	if v.Difficulty != 9.5 || v.TotalBytesRecv != 10 || v.TotalBytesSent != 20 {
		t.Fatalf("rpc fields = %+v", v)
	}
}

func TestGetPeersPaging(t *testing.T) {
	node := newFakeNode()
	for i := 0; i < 3; i++ {
		node.peers = append(node.peers, &chain.Peer{ID: i, Addr: fmt.Sprintf("10.0.0.%d:44806", i)})
	}
	eng := testEngine(newFakeStore(), node)

	page, err := eng.GetPeers(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("GetPeers: %v", err)
	}
	if page.Total != 3 || len(page.Result) != 1 || page.Result[0].ID != 2 {
		t.Fatalf("page = %+v", page)
	}
}

func TestGetPeersLocation(t *testing.T) {
	table, err := geoip.Parse(strings.NewReader("1.2.3.4,10.5,-20.25\n"))
	if err != nil {
		t.Fatalf("parse geoip: %v", err)
	}
	node := newFakeNode()
	node.peers = []*chain.Peer{
		{ID: 0, Addr: "1.2.3.4:44806"},
		{ID: 1, Addr: "9.9.9.9:44806"},
	}
	eng := New(newFakeStore(), node, Config{Network: consensus.Regtest(), Geo: table})

	locs, err := eng.GetPeersLocation(context.Background())
	if err != nil {
		t.Fatalf("GetPeersLocation: %v", err)
	}
	if len(locs) != 1 {
		t.Fatalf("len(locs) = %d, want 1", len(locs))
	}
	if locs[0].Host != "1.2.3.4" || locs[0].Latitude != 10.5 || locs[0].Longitude != -20.25 {
		t.Fatalf("loc = %+v", locs[0])
	}
}
