package repository

import (
	"context"
	"fmt"
	"sort"

	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/models"

	"github.com/jackc/pgx/v5"
)

// SummariesInRange returns day rows with time in [startTime, endTime],
// oldest first. Chart endpoints map these to their series.
func (r *Repository) SummariesInRange(ctx context.Context, startTime, endTime int64) ([]models.Summary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT time, blocks, txs, total_txs, difficulty, supply, burned
		FROM summaries WHERE time >= $1 AND time <= $2 ORDER BY time`, startTime, endTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Summary, 0)
	for rows.Next() {
		var s models.Summary
		if err := rows.Scan(&s.Time, &s.Blocks, &s.Txs, &s.TotalTxs, &s.Difficulty, &s.Supply, &s.Burned); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RebuildSummaries recomputes day rows from fromTime onward out of the
// blocks and coins tables. The backfill tool uses this directly;
// rollback runs the same recompute inside its own transaction.
func (r *Repository) RebuildSummaries(ctx context.Context, fromTime int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := rebuildSummariesTx(ctx, tx, fromTime); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func rebuildSummariesTx(ctx context.Context, tx pgx.Tx, fromTime int64) error {
	fromDay := DayStart(fromTime)

	if _, err := tx.Exec(ctx, "DELETE FROM summaries WHERE time >= $1", fromDay); err != nil {
		return fmt.Errorf("failed to clear summaries: %w", err)
	}

	var prevTotalTxs int64
	var prevSupply, prevBurned float64
	err := tx.QueryRow(ctx, `
		SELECT total_txs, supply, burned FROM summaries
		WHERE time < $1 ORDER BY time DESC LIMIT 1`, fromDay).
		Scan(&prevTotalTxs, &prevSupply, &prevBurned)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("failed to read prior summary: %w", err)
	}

	type dayAgg struct {
		blocks     int64
		txs        int64
		difficulty float64
		supply     float64
		burned     float64
	}
	days := map[int64]*dayAgg{}
	at := func(day int64) *dayAgg {
		d := days[day]
		if d == nil {
			d = &dayAgg{}
			days[day] = d
		}
		return d
	}

	rows, err := tx.Query(ctx, `
		SELECT (time - time % 86400) AS day, COUNT(*), COALESCE(SUM(txs), 0), COALESCE(SUM(difficulty), 0)
		FROM blocks WHERE time >= $1 GROUP BY day`, fromDay)
	if err != nil {
		return fmt.Errorf("failed to aggregate blocks: %w", err)
	}
	for rows.Next() {
		var day, blocks, txs int64
		var difficulty float64
		if err := rows.Scan(&day, &blocks, &txs, &difficulty); err != nil {
			rows.Close()
			return err
		}
		d := at(day)
		d.blocks, d.txs, d.difficulty = blocks, txs, difficulty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = tx.Query(ctx, `
		SELECT (time - time % 86400) AS day, SUM(value)
		FROM coins WHERE coinbase AND time >= $1 GROUP BY day`, fromDay)
	if err != nil {
		return fmt.Errorf("failed to aggregate supply: %w", err)
	}
	for rows.Next() {
		var day, value int64
		if err := rows.Scan(&day, &value); err != nil {
			rows.Close()
			return err
		}
		at(day).supply = float64(value) / consensus.CoinExponent
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = tx.Query(ctx, `
		SELECT (time - time % 86400) AS day, SUM(value)
		FROM coins WHERE covenant_type = 6 AND time >= $1 GROUP BY day`, fromDay)
	if err != nil {
		return fmt.Errorf("failed to aggregate burned: %w", err)
	}
	for rows.Next() {
		var day, value int64
		if err := rows.Scan(&day, &value); err != nil {
			rows.Close()
			return err
		}
		at(day).burned = float64(value) / consensus.CoinExponent
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	ordered := make([]int64, 0, len(days))
	for day := range days {
		ordered = append(ordered, day)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, day := range ordered {
		d := days[day]
		// A day can hold reward or burn coins without any block row only
		// if the tables disagree; skip rather than write a blockless day.
		if d.blocks == 0 {
			continue
		}
		prevTotalTxs += d.txs
		prevSupply += d.supply
		prevBurned += d.burned
		_, err := tx.Exec(ctx, `
			INSERT INTO summaries (time, blocks, txs, total_txs, difficulty, supply, burned)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			day, d.blocks, d.txs, prevTotalTxs, d.difficulty, prevSupply, prevBurned)
		if err != nil {
			return fmt.Errorf("failed to insert summary %d: %w", day, err)
		}
	}
	return nil
}
