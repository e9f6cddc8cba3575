package repository

import (
	"context"
	"fmt"
	"log"
)

// RollbackTo unwinds the store to the given height in one transaction:
// rows above the height are deleted, spend marks laid down by removed
// transactions are cleared, auction summaries that lost reveals are
// recomputed from the surviving coins, and day summaries are rebuilt
// from the first affected day. After a subsequent rescan the store is
// identical to one indexed fresh through the new chain.
func (r *Repository) RollbackTo(ctx context.Context, height uint64) error {
	log.Printf("[rollback] rolling back to height %d", height)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Names whose reveals are being removed need a recompute below.
	var affected []string
	rows, err := tx.Query(ctx, `
		SELECT DISTINCT name_hash FROM coins
		WHERE height > $1 AND covenant_type = 4 AND name_hash IS NOT NULL`, height)
	if err != nil {
		return fmt.Errorf("rollback collect reveal names: %w", err)
	}
	for rows.Next() {
		var nh string
		if err := rows.Scan(&nh); err != nil {
			rows.Close()
			return err
		}
		affected = append(affected, nh)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var minTime *int64
	if err := tx.QueryRow(ctx, "SELECT MIN(time) FROM blocks WHERE height > $1", height).Scan(&minTime); err != nil {
		return fmt.Errorf("rollback read affected window: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM coins WHERE height > $1", height); err != nil {
		return fmt.Errorf("rollback coins: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM txs WHERE height > $1", height); err != nil {
		return fmt.Errorf("rollback txs: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM blocks WHERE height > $1", height); err != nil {
		return fmt.Errorf("rollback blocks: %w", err)
	}

	// Spend marks whose spending transaction no longer exists revert to
	// unspent. The partial spender index keeps this off unspent rows.
	if _, err := tx.Exec(ctx, `
		UPDATE coins SET spent = FALSE, spent_txid = NULL, spent_idx = NULL
		WHERE spent AND NOT EXISTS (SELECT 1 FROM txs t WHERE t.txid = coins.spent_txid)`); err != nil {
		return fmt.Errorf("rollback spend marks: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM names WHERE open > $1", height); err != nil {
		return fmt.Errorf("rollback names: %w", err)
	}

	if len(affected) > 0 {
		// Re-derive second price and highest from the reveals that
		// survived, scoped to the current auction's open height.
		if _, err := tx.Exec(ctx, `
			UPDATE names SET
				highest = COALESCE((
					SELECT MAX(c.value) FROM coins c
					WHERE c.name_hash = names.name_hash AND c.covenant_type = 4 AND c.height > names.open), 0),
				value = COALESCE((
					SELECT c.value FROM coins c
					WHERE c.name_hash = names.name_hash AND c.covenant_type = 4 AND c.height > names.open
					ORDER BY c.value DESC OFFSET 1 LIMIT 1), 0)
			WHERE name_hash = ANY($1::text[])`, affected); err != nil {
			return fmt.Errorf("rollback recompute names: %w", err)
		}
	}

	if minTime != nil {
		if err := rebuildSummariesTx(ctx, tx, *minTime); err != nil {
			return fmt.Errorf("rollback summaries: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO checkpoint (id, last_height, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_height = LEAST(checkpoint.last_height, EXCLUDED.last_height),
			updated_at = NOW()`, height); err != nil {
		return fmt.Errorf("rollback checkpoint: %w", err)
	}

	log.Printf("[rollback] rollback to height %d complete (%d names recomputed)", height, len(affected))
	return tx.Commit(ctx)
}
