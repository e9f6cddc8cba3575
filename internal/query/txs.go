package query

import (
	"context"
	"fmt"
	"log"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
)

// txContext carries the block frame for transactions served inside a
// block body, where the node omits per-tx height, hash and time.
type txContext struct {
	height int64
	hash   string
	time   int64
	index  int
}

// GetTransaction returns the normalized transaction, confirmed or
// mempool.
func (e *Engine) GetTransaction(ctx context.Context, txid string) (*TxView, error) {
	if len(txid) != 64 || !isHex(txid) {
		return nil, fmt.Errorf("%w: malformed txid %q", ErrInput, txid)
	}
	tx, err := e.node.Tx(ctx, txid)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	return e.normalizeTx(ctx, tx, nil)
}

// GetTransactionsByHeight pages a block's transactions in block
// order.
func (e *Engine) GetTransactionsByHeight(ctx context.Context, height uint64, limit, offset int) (*TxPage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	block, err := e.node.BlockByHeight(ctx, height)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	total := len(block.Txs)
	out := make([]*TxView, 0, limit)
	for i := offset; i < total && len(out) < limit; i++ {
		tv, err := e.normalizeTx(ctx, block.Txs[i], &txContext{
			height: int64(block.Height),
			hash:   block.Hash,
			time:   block.Time,
			index:  i,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return &TxPage{Total: int64(total), Limit: limit, Offset: offset, Result: out}, nil
}

// GetTransactionsByAddress pages the confirmed transactions touching
// an address, newest block first.
func (e *Engine) GetTransactionsByAddress(ctx context.Context, address string, limit, offset int) (*TxPage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 50)
	if err != nil {
		return nil, err
	}
	hashHex, _, err := e.addressParam(address)
	if err != nil {
		return nil, err
	}
	total, err := e.store.CountTxsByAddress(ctx, hashHex)
	if err != nil {
		return nil, fmt.Errorf("failed to count address txs: %w", err)
	}
	txids, err := e.store.TxidsByAddress(ctx, hashHex, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list address txs: %w", err)
	}
	out := make([]*TxView, 0, len(txids))
	for _, txid := range txids {
		tx, err := e.node.Tx(ctx, txid)
		if err != nil {
			if mapNodeErr(err) == ErrNotFound {
				log.Printf("[query] indexed tx %s missing from node", txid)
				continue
			}
			return nil, err
		}
		tv, err := e.normalizeTx(ctx, tx, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return &TxPage{Total: total, Limit: limit, Offset: offset, Result: out}, nil
}

// GetTransactions returns the most recent transactions, walking block
// bodies back from the indexed head.
func (e *Engine) GetTransactions(ctx context.Context, limit int) (*TxPage, error) {
	limit, _, err := clampPage(limit, 0, 25, 50)
	if err != nil {
		return nil, err
	}
	total, err := e.store.CountTxs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count txs: %w", err)
	}
	head, err := e.store.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed head: %w", err)
	}
	out := make([]*TxView, 0, limit)
	for h := head; h > 0 && len(out) < limit; h-- {
		block, err := e.node.BlockByHeight(ctx, h)
		if err != nil {
			return nil, mapNodeErr(err)
		}
		for i, tx := range block.Txs {
			if len(out) == limit {
				break
			}
			tv, err := e.normalizeTx(ctx, tx, &txContext{
				height: int64(block.Height),
				hash:   block.Hash,
				time:   block.Time,
				index:  i,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, tv)
		}
	}
	return &TxPage{Total: total, Limit: limit, Result: out}, nil
}

// GetMempool pages the node's unconfirmed transactions.
func (e *Engine) GetMempool(ctx context.Context, limit, offset int) (*MempoolPage, error) {
	limit, offset, err := clampPage(limit, offset, 25, 100)
	if err != nil {
		return nil, err
	}
	txids, err := e.node.MempoolTxids(ctx)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	total := len(txids)
	items := make([]*TxView, 0, limit)
	for i := offset; i < total && len(items) < limit; i++ {
		tx, err := e.node.Tx(ctx, txids[i])
		if err != nil {
			// Races with confirmation: the txid snapshot can name
			// entries the mempool has already dropped.
			if mapNodeErr(err) == ErrNotFound {
				continue
			}
			return nil, err
		}
		tv, err := e.normalizeTx(ctx, tx, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, tv)
	}
	return &MempoolPage{Total: total, Limit: limit, Offset: offset, Items: items}, nil
}

// GetAddressMempool returns an address's unconfirmed transactions.
func (e *Engine) GetAddressMempool(ctx context.Context, address string) ([]*TxView, error) {
	_, bech, err := e.addressParam(address)
	if err != nil {
		return nil, err
	}
	out := make([]*TxView, 0)
	if bech == "" {
		// The node's address index keys on the bech32 string; a bare
		// hash cannot be queried there.
		return out, nil
	}
	txs, err := e.node.TxsByAddress(ctx, bech)
	if err != nil {
		return nil, mapNodeErr(err)
	}
	for _, tx := range txs {
		if tx.Height >= 0 {
			continue
		}
		tv, err := e.normalizeTx(ctx, tx, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return out, nil
}

// normalizeTx collapses a node transaction into the explorer shape.
// bctx fills the block frame for transactions served inside a block
// body; it is nil for /tx lookups, which carry their own frame.
func (e *Engine) normalizeTx(ctx context.Context, tx *chain.Tx, bctx *txContext) (*TxView, error) {
	v := &TxView{
		Txid:     tx.Hash,
		Height:   tx.Height,
		Block:    tx.Block,
		Time:     tx.Time,
		Index:    tx.Index,
		Version:  tx.Version,
		Locktime: tx.Locktime,
		Fee:      tx.Fee,
	}
	if bctx != nil {
		v.Height = bctx.height
		v.Block = bctx.hash
		v.Time = bctx.time
		v.Index = bctx.index
	}

	coinbase := tx.IsCoinbase()
	var inTotal, outTotal uint64
	resolved := true
	v.Inputs = make([]*InputView, 0, len(tx.Inputs))
	for idx, in := range tx.Inputs {
		iv := &InputView{}
		switch {
		case coinbase && idx == 0:
			height := v.Height
			if height < 0 {
				height = 0
			}
			iv.Value = consensus.GetReward(uint64(height), e.cfg.Network.HalvingInterval)
			iv.Coinbase = true
			inTotal += iv.Value
		case in.Coin != nil:
			iv.Value = in.Coin.Value
			iv.Address = in.Coin.Address
			inTotal += iv.Value
		default:
			if c := e.lookupCoin(ctx, in.Prevout.Hash, in.Prevout.Index); c != nil {
				iv.Value = c.Value
				iv.Address = c.Address
				inTotal += iv.Value
			} else {
				iv.Airdrop = true
				resolved = false
			}
		}
		v.Inputs = append(v.Inputs, iv)
	}

	v.Outputs = make([]*OutputView, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outTotal += out.Value
		v.Outputs = append(v.Outputs, e.normalizeOutput(ctx, out))
	}

	if v.Fee == 0 && !coinbase && resolved && inTotal > outTotal {
		v.Fee = inTotal - outTotal
	}
	return v, nil
}

// lookupCoin resolves a prevout from the store when the node supplied
// no coin view. Errors degrade to a miss.
func (e *Engine) lookupCoin(ctx context.Context, txid string, index uint32) *coinRef {
	c, err := e.store.GetCoin(ctx, txid, index)
	if err != nil || c == nil {
		return nil
	}
	return &coinRef{Value: c.Value, Address: c.Address}
}

type coinRef struct {
	Value   uint64
	Address string
}

// normalizeOutput annotates an output by its covenant action. Value
// is carried for the actions that spend or lock funds (NONE, BID,
// REVEAL); name covenants expose the name hash and, where known, the
// name itself.
func (e *Engine) normalizeOutput(ctx context.Context, out *chain.TxOutput) *OutputView {
	ov := &OutputView{Address: out.Address, Action: "NONE"}
	covType := consensus.CovenantNone
	if out.Covenant != nil {
		covType = out.Covenant.Type
	}
	ov.Action = consensus.CovenantName(covType)

	switch covType {
	case consensus.CovenantNone:
		value := out.Value
		ov.Value = &value
	case consensus.CovenantOpen, consensus.CovenantClaim:
		ov.NameHash = out.Covenant.NameHash()
		ov.Name = out.Covenant.NameString()
	case consensus.CovenantBid:
		value := out.Value
		ov.Value = &value
		ov.NameHash = out.Covenant.NameHash()
		ov.Name = out.Covenant.NameString()
	case consensus.CovenantReveal:
		value := out.Value
		ov.Value = &value
		ov.NameHash = out.Covenant.NameHash()
		if len(out.Covenant.Items) > 2 {
			ov.Nonce = out.Covenant.Items[2]
		}
	case consensus.CovenantRedeem:
		ov.NameHash = out.Covenant.NameHash()
	default:
		ov.NameHash = out.Covenant.NameHash()
		if covType == consensus.CovenantFinalize {
			ov.Name = out.Covenant.NameString()
		}
	}

	if ov.NameHash != "" && ov.Name == "" {
		ov.Name = e.resolveName(ctx, ov.NameHash)
	}
	return ov
}

// resolveName maps a name hash back to its name, preferring the
// store's record over a node round-trip. Misses resolve to "".
func (e *Engine) resolveName(ctx context.Context, nameHash string) string {
	if rec, err := e.store.GetNameRecord(ctx, nameHash); err == nil && rec != nil && rec.Name != "" {
		return rec.Name
	}
	name, err := e.node.NameByHash(ctx, nameHash)
	if err != nil {
		return ""
	}
	return name
}
