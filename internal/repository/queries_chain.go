package repository

import (
	"context"

	"hnscan-clone/internal/models"

	"github.com/jackc/pgx/v5"
)

// GetBlockRecord returns the stored block row at a height, or nil when
// the height has not been indexed.
func (r *Repository) GetBlockRecord(ctx context.Context, height uint64) (*models.Block, error) {
	row := r.db.QueryRow(ctx, `
		SELECT height, hash, COALESCE(prev_hash, ''), difficulty, time, txs, miner, COALESCE(miner_address, '')
		FROM blocks WHERE height = $1`, height)
	return scanBlock(row)
}

// GetBlockRecordByHash returns the stored block row with the given
// hash, or nil. Search uses this to classify 64-hex queries.
func (r *Repository) GetBlockRecordByHash(ctx context.Context, hash string) (*models.Block, error) {
	row := r.db.QueryRow(ctx, `
		SELECT height, hash, COALESCE(prev_hash, ''), difficulty, time, txs, miner, COALESCE(miner_address, '')
		FROM blocks WHERE hash = $1`, hash)
	return scanBlock(row)
}

func scanBlock(row pgx.Row) (*models.Block, error) {
	var b models.Block
	err := row.Scan(&b.Height, &b.Hash, &b.PrevHash, &b.Difficulty, &b.Time, &b.Txs, &b.Miner, &b.MinerAddress)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBlocks returns stored blocks newest first. Offset counts back
// from the tip, so offset 0 starts at the best indexed block.
func (r *Repository) ListBlocks(ctx context.Context, limit, offset int) ([]models.Block, error) {
	rows, err := r.db.Query(ctx, `
		SELECT height, hash, COALESCE(prev_hash, ''), difficulty, time, txs, miner, COALESCE(miner_address, '')
		FROM blocks ORDER BY height DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Block, 0, limit)
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.Height, &b.Hash, &b.PrevHash, &b.Difficulty, &b.Time, &b.Txs, &b.Miner, &b.MinerAddress); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountBlocks returns the number of indexed blocks.
func (r *Repository) CountBlocks(ctx context.Context) (uint64, error) {
	var n uint64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM blocks").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountTxs returns the number of indexed transactions.
func (r *Repository) CountTxs(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM txs").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// BlockTimeBounds returns the min and max block times over a height
// range, inclusive. Used for the hashrate window; ok is false when the
// range holds no blocks.
func (r *Repository) BlockTimeBounds(ctx context.Context, from, to uint64) (minTime, maxTime int64, ok bool, err error) {
	var lo, hi *int64
	err = r.db.QueryRow(ctx, `
		SELECT MIN(time), MAX(time) FROM blocks WHERE height >= $1 AND height <= $2`,
		from, to).Scan(&lo, &hi)
	if err != nil {
		return 0, 0, false, err
	}
	if lo == nil || hi == nil {
		return 0, 0, false, nil
	}
	return *lo, *hi, true, nil
}

// GetTxRecord returns the stored transaction row, or nil when unknown.
func (r *Repository) GetTxRecord(ctx context.Context, txid string) (*models.Tx, error) {
	var t models.Tx
	err := r.db.QueryRow(ctx, `
		SELECT txid, height, block_hash, time, addresses FROM txs WHERE txid = $1`, txid).
		Scan(&t.Txid, &t.Height, &t.BlockHash, &t.Time, &t.Addresses)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TxidsByAddress pages the txids touching an address hash, newest
// block first. The GIN index on addresses drives the containment
// filter.
func (r *Repository) TxidsByAddress(ctx context.Context, address string, limit, offset int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT txid FROM txs WHERE addresses @> ARRAY[$1]::text[]
		ORDER BY height DESC, txid LIMIT $2 OFFSET $3`, address, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var txid string
		if err := rows.Scan(&txid); err != nil {
			return nil, err
		}
		out = append(out, txid)
	}
	return out, rows.Err()
}

// CountTxsByAddress returns how many stored transactions touch an
// address hash.
func (r *Repository) CountTxsByAddress(ctx context.Context, address string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM txs WHERE addresses @> ARRAY[$1]::text[]`, address).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PoolCount is one slice of the mining distribution over a window.
type PoolCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// PoolDistribution aggregates blocks-per-miner over a time window,
// largest share first.
func (r *Repository) PoolDistribution(ctx context.Context, startTime, endTime int64) ([]PoolCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT miner, COUNT(*) FROM blocks
		WHERE time >= $1 AND time <= $2
		GROUP BY miner ORDER BY COUNT(*) DESC, miner`, startTime, endTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PoolCount, 0)
	for rows.Next() {
		var pc PoolCount
		if err := rows.Scan(&pc.Name, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
