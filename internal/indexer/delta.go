package indexer

import (
	"context"
	"fmt"
	"log"
	"sort"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

type outpointKey struct {
	txid  string
	index uint32
}

// buildDelta turns one block into the rows it writes. Inputs resolve
// their spent coin from the node's view, from outputs created earlier
// in the same block, or from the store; outputs become coins; name
// covenants fold into per-name auction updates; coinbase and REGISTER
// values feed the day summary.
func (i *Indexer) buildDelta(ctx context.Context, entry *chain.Entry, block *chain.Block) (*repository.BlockDelta, error) {
	d := &repository.BlockDelta{}
	names := map[string]*repository.NameUpdate{}
	created := map[outpointKey]models.Coin{}
	var supply, burned uint64

	for _, tx := range block.Txs {
		coinbase := tx.IsCoinbase()
		seen := map[string]bool{}
		addrs := []string{}
		add := func(a string) {
			if a != "" && !seen[a] {
				seen[a] = true
				addrs = append(addrs, a)
			}
		}

		if !coinbase {
			for inIndex, in := range tx.Inputs {
				coin, err := i.resolveInput(ctx, in, created)
				if err != nil {
					return nil, err
				}
				if coin == nil {
					log.Printf("[indexer] missing coin %s/%d spent by %s at height %d",
						in.Prevout.Hash, in.Prevout.Index, tx.Hash, entry.Height)
					continue
				}
				add(coin.Address)
				d.Spends = append(d.Spends, repository.CoinSpend{
					Txid:       in.Prevout.Hash,
					Index:      in.Prevout.Index,
					SpentTxid:  tx.Hash,
					SpentIndex: uint32(inIndex),
				})
			}
		}

		for outIndex, out := range tx.Outputs {
			if coinbase {
				supply += out.Value
			}
			addr := i.addressHash(out.Address)
			add(addr)
			coin := models.Coin{
				Txid:     tx.Hash,
				Index:    uint32(outIndex),
				Height:   entry.Height,
				Time:     entry.Time,
				Address:  addr,
				Value:    out.Value,
				Coinbase: coinbase,
			}
			if cov := out.Covenant; cov != nil {
				coin.CovenantType = cov.Type
				coin.CovenantItems = cov.Items
				if consensus.IsNameCovenant(cov.Type) {
					coin.NameHash = cov.NameHash()
					if err := i.applyNameCovenant(ctx, names, cov, entry.Height, out.Value); err != nil {
						return nil, err
					}
					if cov.Type == consensus.CovenantRegister {
						burned += out.Value
					}
				}
			}
			d.Coins = append(d.Coins, coin)
			created[outpointKey{tx.Hash, uint32(outIndex)}] = coin
		}

		d.Txs = append(d.Txs, models.Tx{
			Txid:      tx.Hash,
			Height:    entry.Height,
			BlockHash: entry.Hash,
			Time:      entry.Time,
			Addresses: addrs,
		})
	}

	for _, nu := range names {
		d.Names = append(d.Names, *nu)
	}
	sort.Slice(d.Names, func(a, b int) bool { return d.Names[a].Record.NameHash < d.Names[b].Record.NameHash })

	miner, minerAddr := i.attributeMiner(block)
	d.Block = models.Block{
		Height:       entry.Height,
		Hash:         entry.Hash,
		PrevHash:     entry.PrevBlock,
		Difficulty:   consensus.ToDifficulty(entry.Bits),
		Time:         entry.Time,
		Txs:          len(block.Txs),
		Miner:        miner,
		MinerAddress: minerAddr,
	}
	d.Summary = repository.SummaryDelta{
		DayTime:    repository.DayStart(entry.Time),
		Blocks:     1,
		Txs:        int64(len(block.Txs)),
		Difficulty: d.Block.Difficulty,
		Supply:     supply,
		Burned:     burned,
	}
	return d, nil
}

// resolveInput finds the coin an input spends. nil means the output
// was never indexed, which only happens on damaged stores.
func (i *Indexer) resolveInput(ctx context.Context, in *chain.TxInput, created map[outpointKey]models.Coin) (*models.Coin, error) {
	if in.Coin != nil {
		return &models.Coin{Address: i.addressHash(in.Coin.Address), Value: in.Coin.Value}, nil
	}
	if c, ok := created[outpointKey{in.Prevout.Hash, in.Prevout.Index}]; ok {
		return &c, nil
	}
	c, err := i.store.GetCoin(ctx, in.Prevout.Hash, in.Prevout.Index)
	if err != nil {
		return nil, fmt.Errorf("read coin %s/%d: %w", in.Prevout.Hash, in.Prevout.Index, err)
	}
	return c, nil
}

// applyNameCovenant folds an OPEN, CLAIM or REVEAL into the block's
// name updates. OPEN and CLAIM reset the record; reveals keep the
// running (second price, highest) pair, order independent across the
// block.
func (i *Indexer) applyNameCovenant(ctx context.Context, names map[string]*repository.NameUpdate, cov *chain.Covenant, height, value uint64) error {
	nh := cov.NameHash()
	if nh == "" {
		return nil
	}
	switch cov.Type {
	case consensus.CovenantClaim, consensus.CovenantOpen:
		names[nh] = &repository.NameUpdate{
			Record: models.Name{NameHash: nh, Name: cov.NameString(), Open: height},
			Opened: true,
		}
	case consensus.CovenantReveal:
		nu := names[nh]
		if nu == nil {
			rec, err := i.store.GetNameRecord(ctx, nh)
			if err != nil {
				return fmt.Errorf("read name %s: %w", nh, err)
			}
			nu = &repository.NameUpdate{}
			if rec != nil {
				nu.Record = *rec
			} else {
				nu.Record = models.Name{NameHash: nh}
			}
			names[nh] = nu
		}
		// Second-price rule: the top reveal wins but pays the runner-up.
		if value > nu.Record.Highest {
			nu.Record.Value = nu.Record.Highest
			nu.Record.Highest = value
		} else if value > nu.Record.Value {
			nu.Record.Value = value
		}
	}
	return nil
}

// addressHash reduces a bech32 address to the witness-program hex the
// store indexes by. Undecodable strings pass through unchanged so an
// exotic output still keys consistently.
func (i *Indexer) addressHash(addr string) string {
	if addr == "" {
		return ""
	}
	a, err := i.cfg.Network.DecodeAddress(addr)
	if err != nil {
		return addr
	}
	return a.HashHex()
}

// attributeMiner labels a block by its coinbase payout address. First
// pool-table match wins; unmatched blocks stay "unknown" but keep the
// address.
func (i *Indexer) attributeMiner(block *chain.Block) (miner, minerAddress string) {
	if len(block.Txs) == 0 {
		return "unknown", ""
	}
	cb := block.Txs[0]
	if !cb.IsCoinbase() || len(cb.Outputs) == 0 {
		return "unknown", ""
	}
	addr := cb.Outputs[0].Address
	for _, p := range i.cfg.Pools {
		for _, a := range p.Addresses {
			if a == addr {
				return p.Name, addr
			}
		}
	}
	return "unknown", addr
}
