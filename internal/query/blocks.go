package query

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"hnscan-clone/internal/consensus"
)

// hashrateWindow is the trailing block span the hashrate estimate
// averages over.
const hashrateWindow = 120

// GetBlocks pages indexed blocks newest first. Offset counts back
// from the tip and may not reach past it.
func (e *Engine) GetBlocks(ctx context.Context, limit, offset int) (*BlockPage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	total, err := e.store.CountBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count blocks: %w", err)
	}
	if total > 0 && uint64(offset) > total {
		return nil, fmt.Errorf("%w: offset %d beyond chain tip", ErrInput, offset)
	}
	blocks, err := e.store.ListBlocks(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	return &BlockPage{Total: total, Limit: limit, Offset: offset, Result: blocks}, nil
}

// GetBlock builds the full block document at a height. With details
// the block's transactions are normalized and attached.
func (e *Engine) GetBlock(ctx context.Context, height uint64, details bool) (*BlockView, error) {
	entry, err := e.node.EntryByHeight(ctx, height)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	block, err := e.node.BlockByHeight(ctx, height)
	if err != nil {
		return nil, mapNodeErr(err)
	}

	v := &BlockView{
		Height:       entry.Height,
		Hash:         entry.Hash,
		PrevBlock:    entry.PrevBlock,
		MerkleRoot:   entry.MerkleRoot,
		WitnessRoot:  entry.WitnessRoot,
		TreeRoot:     entry.TreeRoot,
		ReservedRoot: entry.ReservedRoot,
		Mask:         entry.Mask,
		Time:         entry.Time,
		Bits:         entry.Bits,
		Difficulty:   consensus.ToDifficulty(entry.Bits),
		Chainwork:    entry.Chainwork,
		Nonce:        entry.Nonce,
		ExtraNonce:   entry.ExtraNonce,
		TxCount:      len(block.Txs),
		Miner:        "unknown",
	}

	// Median-time-past and the next hash only come from the verbose
	// header RPC; a failure there degrades the view, not the request.
	if hdr, err := e.node.Header(ctx, entry.Hash); err == nil {
		v.MedianTime = hdr.MedianTime
		v.NextHash = hdr.NextBlockHash
	} else {
		log.Printf("[query] failed to fetch header %s: %v", entry.Hash, err)
	}

	v.Reward = consensus.GetReward(height, e.cfg.Network.HalvingInterval)
	if len(block.Txs) > 0 {
		cb := block.Txs[0]
		var cbTotal uint64
		for _, out := range cb.Outputs {
			cbTotal += out.Value
		}
		if cbTotal > v.Reward {
			v.Fees = cbTotal - v.Reward
		}
		v.AverageFee = float64(v.Fees) / float64(len(block.Txs))
		if len(cb.Inputs) > 0 {
			v.CoinbaseWitness = cb.Inputs[0].Witness
		}
		if len(cb.Outputs) > 0 {
			v.MinerAddress = cb.Outputs[0].Address
			if p := e.poolFor(v.MinerAddress); p != nil {
				v.Miner = p.Name
				v.Pool = p
			}
		}
	}

	if details {
		v.Txs = make([]*TxView, 0, len(block.Txs))
		for i, tx := range block.Txs {
			tv, err := e.normalizeTx(ctx, tx, &txContext{
				height: int64(entry.Height),
				hash:   entry.Hash,
				time:   entry.Time,
				index:  i,
			})
			if err != nil {
				return nil, err
			}
			v.Txs = append(v.Txs, tv)
		}
	}
	return v, nil
}

// Hashrate estimates network hashrate over the trailing window:
// chainwork delta between the window's edge entries divided by the
// elapsed block time the store observed.
func (e *Engine) Hashrate(ctx context.Context) (float64, error) {
	head, err := e.store.Head(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read indexed head: %w", err)
	}
	if head == 0 {
		return 0, nil
	}
	var from uint64
	if head > hashrateWindow {
		from = head - hashrateWindow
	}
	minTime, maxTime, ok, err := e.store.BlockTimeBounds(ctx, from, head)
	if err != nil {
		return 0, fmt.Errorf("failed to read block time bounds: %w", err)
	}
	if !ok || maxTime <= minTime {
		return 0, nil
	}
	first, err := e.node.EntryByHeight(ctx, from)
	if err != nil {
		return 0, mapNodeErr(err)
	}
	last, err := e.node.EntryByHeight(ctx, head)
	if err != nil {
		return 0, mapNodeErr(err)
	}
	work := new(big.Int).Sub(last.ChainworkBig(), first.ChainworkBig())
	if work.Sign() <= 0 {
		return 0, nil
	}
	rate, _ := new(big.Float).Quo(
		new(big.Float).SetInt(work),
		big.NewFloat(float64(maxTime-minTime)),
	).Float64()
	return rate, nil
}
