package repository

import (
	"context"

	"hnscan-clone/internal/models"

	"github.com/jackc/pgx/v5"
)

const coinColumns = `txid, idx, height, time, address, value, covenant_type, covenant_items,
	COALESCE(name_hash, ''), coinbase, spent, COALESCE(spent_txid, ''), COALESCE(spent_idx, 0)`

func scanCoin(row pgx.Row) (*models.Coin, error) {
	var c models.Coin
	err := row.Scan(&c.Txid, &c.Index, &c.Height, &c.Time, &c.Address, &c.Value,
		&c.CovenantType, &c.CovenantItems, &c.NameHash, &c.Coinbase, &c.Spent, &c.SpentTxid, &c.SpentIndex)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCoin returns one output row, or nil when the outpoint is unknown.
func (r *Repository) GetCoin(ctx context.Context, txid string, index uint32) (*models.Coin, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+coinColumns+" FROM coins WHERE txid = $1 AND idx = $2", txid, index)
	return scanCoin(row)
}

// CoinsByNameHash returns every output that carries the given name
// covenant, oldest first. The bid sweep walks this to pair bids with
// their reveals.
func (r *Repository) CoinsByNameHash(ctx context.Context, nameHash string) ([]models.Coin, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+coinColumns+" FROM coins WHERE name_hash = $1 ORDER BY height, txid, idx", nameHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCoins(rows)
}

// CoinsByNameHashPage pages a name's covenant outputs newest first,
// for the history endpoint.
func (r *Repository) CoinsByNameHashPage(ctx context.Context, nameHash string, limit, offset int) ([]models.Coin, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+coinColumns+` FROM coins WHERE name_hash = $1
		ORDER BY height DESC, txid, idx LIMIT $2 OFFSET $3`, nameHash, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCoins(rows)
}

// CountCoinsByNameHash returns the number of covenant outputs recorded
// for a name.
func (r *Repository) CountCoinsByNameHash(ctx context.Context, nameHash string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM coins WHERE name_hash = $1", nameHash).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func collectCoins(rows pgx.Rows) ([]models.Coin, error) {
	out := make([]models.Coin, 0)
	for rows.Next() {
		var c models.Coin
		err := rows.Scan(&c.Txid, &c.Index, &c.Height, &c.Time, &c.Address, &c.Value,
			&c.CovenantType, &c.CovenantItems, &c.NameHash, &c.Coinbase, &c.Spent, &c.SpentTxid, &c.SpentIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddressTotals is the confirmed ledger view of one address hash.
type AddressTotals struct {
	Received uint64
	Spent    uint64
}

// AddressBalance sums an address's received and spent output values.
// Confirmed balance is the difference.
func (r *Repository) AddressBalance(ctx context.Context, address string) (AddressTotals, error) {
	var t AddressTotals
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(value), 0),
			COALESCE(SUM(value) FILTER (WHERE spent), 0)
		FROM coins WHERE address = $1`, address).Scan(&t.Received, &t.Spent)
	if err != nil {
		return AddressTotals{}, err
	}
	return t, nil
}

// RegisteredNamesCount counts distinct names that have ever reached a
// REGISTER covenant.
func (r *Repository) RegisteredNamesCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT name_hash) FROM coins
		WHERE covenant_type = 6 AND name_hash IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
