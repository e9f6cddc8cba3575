package repository

import (
	"context"
	"fmt"

	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/models"

	"github.com/jackc/pgx/v5"
)

// CoinSpend marks one previously stored output as consumed by an
// input of the block being applied.
type CoinSpend struct {
	Txid       string
	Index      uint32
	SpentTxid  string
	SpentIndex uint32
}

// NameUpdate is the final auction state for one name touched by a
// block. Opened is set when an OPEN or CLAIM reset the record this
// block; reveal-only updates leave the stored name and open height
// alone.
type NameUpdate struct {
	Record models.Name
	Opened bool
}

// SummaryDelta is a block's contribution to its UTC day row. Supply
// and Burned are in base units; ApplyBlock converts to whole coins.
type SummaryDelta struct {
	DayTime    int64
	Blocks     int64
	Txs        int64
	Difficulty float64
	Supply     uint64
	Burned     uint64
}

// BlockDelta is everything one block writes: the block row, its
// transactions and outputs, the spend marks for consumed outputs, the
// resulting name states and the day-summary increment.
type BlockDelta struct {
	Block   models.Block
	Txs     []models.Tx
	Coins   []models.Coin
	Spends  []CoinSpend
	Names   []NameUpdate
	Summary SummaryDelta
}

// DayStart truncates a Unix timestamp to the start of its UTC day.
func DayStart(t int64) int64 {
	if t < 0 {
		return 0
	}
	return t - t%86400
}

// ApplyBlock atomically persists one block's delta and advances the
// checkpoint. Coins conflict-skip rather than overwrite so a replay of
// an already applied block never clears spend marks laid down by later
// blocks; everything else upserts, making the whole call idempotent.
func (r *Repository) ApplyBlock(ctx context.Context, delta *BlockDelta) error {
	if delta == nil {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b := delta.Block
	_, err = tx.Exec(ctx, `
		INSERT INTO blocks (height, hash, prev_hash, difficulty, time, txs, miner, miner_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (height) DO UPDATE SET
			hash = EXCLUDED.hash,
			prev_hash = EXCLUDED.prev_hash,
			difficulty = EXCLUDED.difficulty,
			time = EXCLUDED.time,
			txs = EXCLUDED.txs,
			miner = EXCLUDED.miner,
			miner_address = EXCLUDED.miner_address`,
		b.Height, b.Hash, nullable(b.PrevHash), b.Difficulty, b.Time, b.Txs, b.Miner, nullable(b.MinerAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert block %d: %w", b.Height, err)
	}

	for _, t := range delta.Txs {
		_, err := tx.Exec(ctx, `
			INSERT INTO txs (txid, height, block_hash, time, addresses)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (txid) DO UPDATE SET
				height = EXCLUDED.height,
				block_hash = EXCLUDED.block_hash,
				time = EXCLUDED.time,
				addresses = EXCLUDED.addresses`,
			t.Txid, t.Height, t.BlockHash, t.Time, t.Addresses,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert tx %s: %w", t.Txid, err)
		}
	}

	for _, c := range delta.Coins {
		items := c.CovenantItems
		if items == nil {
			items = []string{}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO coins (txid, idx, height, time, address, value, covenant_type, covenant_items, name_hash, coinbase)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (txid, idx) DO NOTHING`,
			c.Txid, c.Index, c.Height, c.Time, c.Address, c.Value, c.CovenantType, items, nullable(c.NameHash), c.Coinbase,
		)
		if err != nil {
			return fmt.Errorf("failed to insert coin %s/%d: %w", c.Txid, c.Index, err)
		}
	}

	// Spend marks run after all inserts so intra-block spends resolve.
	if len(delta.Spends) > 0 {
		txids := make([]string, len(delta.Spends))
		idxs := make([]int32, len(delta.Spends))
		spenders := make([]string, len(delta.Spends))
		spenderIdxs := make([]int32, len(delta.Spends))
		for i, s := range delta.Spends {
			txids[i] = s.Txid
			idxs[i] = int32(s.Index)
			spenders[i] = s.SpentTxid
			spenderIdxs[i] = int32(s.SpentIndex)
		}
		_, err := tx.Exec(ctx, `
			UPDATE coins c SET
				spent = TRUE,
				spent_txid = u.spent_txid,
				spent_idx = u.spent_idx
			FROM UNNEST($1::text[], $2::int[], $3::text[], $4::int[]) AS u(txid, idx, spent_txid, spent_idx)
			WHERE c.txid = u.txid AND c.idx = u.idx`,
			txids, idxs, spenders, spenderIdxs,
		)
		if err != nil {
			return fmt.Errorf("failed to mark spends: %w", err)
		}
	}

	for _, n := range delta.Names {
		rec := n.Record
		if n.Opened {
			_, err := tx.Exec(ctx, `
				INSERT INTO names (name_hash, name, open, value, highest)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (name_hash) DO UPDATE SET
					name = EXCLUDED.name,
					open = EXCLUDED.open,
					value = EXCLUDED.value,
					highest = EXCLUDED.highest`,
				rec.NameHash, rec.Name, rec.Open, rec.Value, rec.Highest,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert name %s: %w", rec.NameHash, err)
			}
			continue
		}
		_, err := tx.Exec(ctx, `
			UPDATE names SET value = $2, highest = $3 WHERE name_hash = $1`,
			rec.NameHash, rec.Value, rec.Highest,
		)
		if err != nil {
			return fmt.Errorf("failed to update name %s: %w", rec.NameHash, err)
		}
	}

	if err := applySummary(ctx, tx, delta.Summary); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO checkpoint (id, last_height, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET last_height = EXCLUDED.last_height, updated_at = NOW()`,
		b.Height,
	)
	if err != nil {
		return fmt.Errorf("failed to advance checkpoint: %w", err)
	}

	return tx.Commit(ctx)
}

// applySummary folds one block into its day row. A new day seeds the
// cumulative columns from the latest prior day so total_txs, supply
// and burned stay running totals.
func applySummary(ctx context.Context, tx pgx.Tx, s SummaryDelta) error {
	supply := float64(s.Supply) / consensus.CoinExponent
	burned := float64(s.Burned) / consensus.CoinExponent

	tag, err := tx.Exec(ctx, `
		UPDATE summaries SET
			blocks = blocks + $2,
			txs = txs + $3,
			total_txs = total_txs + $3,
			difficulty = difficulty + $4,
			supply = supply + $5,
			burned = burned + $6
		WHERE time = $1`,
		s.DayTime, s.Blocks, s.Txs, s.Difficulty, supply, burned,
	)
	if err != nil {
		return fmt.Errorf("failed to update summary %d: %w", s.DayTime, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var prevTotalTxs int64
	var prevSupply, prevBurned float64
	err = tx.QueryRow(ctx, `
		SELECT total_txs, supply, burned FROM summaries
		WHERE time < $1 ORDER BY time DESC LIMIT 1`,
		s.DayTime,
	).Scan(&prevTotalTxs, &prevSupply, &prevBurned)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("failed to read prior summary: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO summaries (time, blocks, txs, total_txs, difficulty, supply, burned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.DayTime, s.Blocks, s.Txs, prevTotalTxs+s.Txs, s.Difficulty, prevSupply+supply, prevBurned+burned,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary %d: %w", s.DayTime, err)
	}
	return nil
}

// nullable maps "" to SQL NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
