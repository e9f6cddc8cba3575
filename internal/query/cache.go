package query

import (
	"context"
	"fmt"
	"log"
	"time"

	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

const (
	topValueSize = 50
	topBidsSize  = 50
	weekSeconds  = 7 * 24 * 3600
	monthSeconds = 30 * 24 * 3600
)

// Aggregates is the periodically recomputed snapshot behind the
// heavier name listings. Readers load the whole struct atomically and
// never see a partial refresh; the status counts are only trusted
// while the indexed head still matches Height.
type Aggregates struct {
	Height       uint64              `json:"height"`
	TopValue     []models.Name       `json:"topValue"`
	StatusCounts map[string]int64    `json:"statusCounts"`
	WeekBids     []repository.TopBid `json:"weekBids"`
	MonthBids    []repository.TopBid `json:"monthBids"`
	RefreshedAt  time.Time           `json:"refreshedAt"`
}

// AggregatesSnapshot returns the current snapshot, or nil before the
// first refresh.
func (e *Engine) AggregatesSnapshot() *Aggregates {
	return e.agg.Load()
}

// RefreshAggregates recomputes the snapshot and swaps it in. On error
// the previous snapshot stays visible.
func (e *Engine) RefreshAggregates(ctx context.Context) error {
	head, err := e.store.Head(ctx)
	if err != nil {
		return fmt.Errorf("failed to read indexed head: %w", err)
	}
	snap := &Aggregates{
		Height:       head,
		StatusCounts: make(map[string]int64),
		RefreshedAt:  time.Now(),
	}

	if snap.TopValue, err = e.store.TopNamesByValue(ctx, topValueSize, 0); err != nil {
		return fmt.Errorf("failed to load top names: %w", err)
	}
	for _, status := range []string{"opening", "bidding", "reveal", "closed", "locked"} {
		count, err := e.countStatus(ctx, status, head)
		if err != nil {
			return fmt.Errorf("failed to count %s names: %w", status, err)
		}
		snap.StatusCounts[status] = count
	}
	now := time.Now().Unix()
	if snap.WeekBids, err = e.store.TopBids(ctx, now-weekSeconds, topBidsSize); err != nil {
		return fmt.Errorf("failed to load week bids: %w", err)
	}
	if snap.MonthBids, err = e.store.TopBids(ctx, now-monthSeconds, topBidsSize); err != nil {
		return fmt.Errorf("failed to load month bids: %w", err)
	}

	e.agg.Store(snap)
	return nil
}

// countStatus is the live count behind the cached status totals.
func (e *Engine) countStatus(ctx context.Context, status string, head uint64) (int64, error) {
	if status == "closed" {
		boundary := e.cfg.Network.OpenPeriod() + e.cfg.Network.BiddingPeriod + e.cfg.Network.RevealPeriod
		if head < boundary {
			return 0, nil
		}
		return e.store.CountNamesOpenedBefore(ctx, head-boundary)
	}
	minOpen, maxOpen, ok := e.auctionWindow(status, head)
	if !ok {
		return 0, nil
	}
	return e.store.CountNamesByOpenWindow(ctx, minOpen, maxOpen)
}

// RunAggregates refreshes the snapshot on a timer until the context
// is cancelled. The first refresh waits out a settling delay so a
// cold start does not race the initial catch-up scan; refresh errors
// keep the previous snapshot and the timer always re-arms.
func (e *Engine) RunAggregates(ctx context.Context, settle, every time.Duration) {
	timer := time.NewTimer(settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := e.RefreshAggregates(ctx); err != nil {
				log.Printf("[query] aggregate refresh failed: %v", err)
			} else {
				log.Printf("[query] aggregates refreshed at height %d", e.agg.Load().Height)
			}
			timer.Reset(every)
		}
	}
}
