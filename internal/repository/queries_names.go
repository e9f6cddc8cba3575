package repository

import (
	"context"

	"hnscan-clone/internal/models"

	"github.com/jackc/pgx/v5"
)

// GetNameRecord returns the stored auction summary for a name hash, or
// nil when the name has never been opened.
func (r *Repository) GetNameRecord(ctx context.Context, nameHash string) (*models.Name, error) {
	var n models.Name
	err := r.db.QueryRow(ctx, `
		SELECT name_hash, name, open, value, highest FROM names WHERE name_hash = $1`, nameHash).
		Scan(&n.NameHash, &n.Name, &n.Open, &n.Value, &n.Highest)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NamesByOpenWindow pages names whose open height falls in [minOpen,
// maxOpen], most recently opened first. Lifecycle listings translate
// the chain head into these windows.
func (r *Repository) NamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64, limit, offset int) ([]models.Name, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name_hash, name, open, value, highest FROM names
		WHERE open >= $1 AND open <= $2
		ORDER BY open DESC, name LIMIT $3 OFFSET $4`, minOpen, maxOpen, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

// CountNamesByOpenWindow counts names with open height in [minOpen,
// maxOpen].
func (r *Repository) CountNamesByOpenWindow(ctx context.Context, minOpen, maxOpen uint64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM names WHERE open >= $1 AND open <= $2`, minOpen, maxOpen).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// NamesOpenedBefore pages names opened at or before the given height,
// most recently opened first. This is the closed-auction listing.
func (r *Repository) NamesOpenedBefore(ctx context.Context, maxOpen uint64, limit, offset int) ([]models.Name, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name_hash, name, open, value, highest FROM names
		WHERE open <= $1
		ORDER BY open DESC, name LIMIT $2 OFFSET $3`, maxOpen, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

// CountNamesOpenedBefore counts names opened at or before the given
// height.
func (r *Repository) CountNamesOpenedBefore(ctx context.Context, maxOpen uint64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM names WHERE open <= $1`, maxOpen).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// TopNamesByValue pages names by their second-price value, highest
// first.
func (r *Repository) TopNamesByValue(ctx context.Context, limit, offset int) ([]models.Name, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name_hash, name, open, value, highest FROM names
		WHERE value > 0
		ORDER BY value DESC, name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNames(rows)
}

func collectNames(rows pgx.Rows) ([]models.Name, error) {
	out := make([]models.Name, 0)
	for rows.Next() {
		var n models.Name
		if err := rows.Scan(&n.NameHash, &n.Name, &n.Open, &n.Value, &n.Highest); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// TopBid is one entry of the largest-reveals leaderboard.
type TopBid struct {
	NameHash string `json:"nameHash"`
	Name     string `json:"name"`
	Value    uint64 `json:"value"`
	Time     int64  `json:"time"`
}

// TopBids returns the k largest reveals at or after sinceTime, one row
// per name. The partial reveal-value index keeps the inner scan off
// the full coins table.
func (r *Repository) TopBids(ctx context.Context, sinceTime int64, k int) ([]TopBid, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name_hash, name, value, time FROM (
			SELECT DISTINCT ON (c.name_hash) c.name_hash, n.name, c.value, c.time
			FROM coins c
			JOIN names n ON n.name_hash = c.name_hash
			WHERE c.covenant_type = 4 AND c.time >= $1
			ORDER BY c.name_hash, c.value DESC
		) t ORDER BY value DESC LIMIT $2`, sinceTime, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TopBid, 0, k)
	for rows.Next() {
		var tb TopBid
		if err := rows.Scan(&tb.NameHash, &tb.Name, &tb.Value, &tb.Time); err != nil {
			return nil, err
		}
		out = append(out, tb)
	}
	return out, rows.Err()
}
