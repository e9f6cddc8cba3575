package query

import (
	"context"
	"fmt"
	"log"
)

// GetAddress returns the balance document for an address. Confirmed
// figures come from the coin index; the unconfirmed delta is summed
// from the node's mempool view when the address was given in bech32
// form.
func (e *Engine) GetAddress(ctx context.Context, address string) (*AddressView, error) {
	hashHex, bech, err := e.addressParam(address)
	if err != nil {
		return nil, err
	}
	totals, err := e.store.AddressBalance(ctx, hashHex)
	if err != nil {
		return nil, fmt.Errorf("failed to read address balance: %w", err)
	}
	v := &AddressView{
		Hash:      hashHex,
		Received:  totals.Received,
		Spent:     totals.Spent,
		Confirmed: totals.Received - totals.Spent,
	}
	if bech != "" {
		delta, err := e.mempoolDelta(ctx, bech)
		if err != nil {
			log.Printf("[query] failed to compute mempool delta for %s: %v", hashHex, err)
		} else {
			v.Unconfirmed = delta
		}
	}
	return v, nil
}

// mempoolDelta sums the unconfirmed value movement for an address:
// outputs paying it minus coins it spends.
func (e *Engine) mempoolDelta(ctx context.Context, bech string) (int64, error) {
	txs, err := e.node.TxsByAddress(ctx, bech)
	if err != nil {
		return 0, mapNodeErr(err)
	}
	var delta int64
	for _, tx := range txs {
		if tx.Height >= 0 {
			continue
		}
		for _, out := range tx.Outputs {
			if out.Address == bech {
				delta += int64(out.Value)
			}
		}
		for _, in := range tx.Inputs {
			if in.Coin != nil && in.Coin.Address == bech {
				delta -= int64(in.Coin.Value)
			}
		}
	}
	return delta, nil
}
