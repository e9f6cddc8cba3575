package query

import (
	"context"
	"fmt"
	"math"
	"time"
)

// GetSeries returns one chart's samples over a time window. Dates are
// emitted in milliseconds; a zero end time means now.
func (e *Engine) GetSeries(ctx context.Context, chartType string, startTime, endTime int64) ([]SeriesPoint, error) {
	switch chartType {
	case "difficulty", "dailyTransactions", "dailyTotalTransactions", "supply", "burned":
	default:
		return nil, fmt.Errorf("%w: unknown chart type %q", ErrInput, chartType)
	}
	startTime, endTime, err := timeWindow(startTime, endTime)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.SummariesInRange(ctx, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}
	out := make([]SeriesPoint, 0, len(rows))
	for _, s := range rows {
		p := SeriesPoint{Date: s.Time * 1000}
		switch chartType {
		case "difficulty":
			if s.Blocks > 0 {
				p.Value = s.Difficulty / float64(s.Blocks)
			}
		case "dailyTransactions":
			p.Value = float64(s.Txs)
		case "dailyTotalTransactions":
			p.Value = float64(s.TotalTxs)
		case "supply":
			p.Value = round2(s.Supply)
		case "burned":
			p.Value = round2(s.Burned)
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPoolDistribution aggregates mined blocks per pool over a time
// window and joins each slice with the pool table for its URL.
func (e *Engine) GetPoolDistribution(ctx context.Context, startTime, endTime int64) (*DistributionView, error) {
	startTime, endTime, err := timeWindow(startTime, endTime)
	if err != nil {
		return nil, err
	}
	counts, err := e.store.PoolDistribution(ctx, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool distribution: %w", err)
	}
	v := &DistributionView{Items: make([]DistributionItem, 0, len(counts))}
	for _, pc := range counts {
		item := DistributionItem{PoolName: pc.Name, Count: pc.Count}
		for i := range e.cfg.Pools {
			if e.cfg.Pools[i].Name == pc.Name {
				item.URL = e.cfg.Pools[i].URL
				break
			}
		}
		v.Total += pc.Count
		v.Items = append(v.Items, item)
	}
	return v, nil
}

// timeWindow normalizes a start/end pair: zero end means now,
// negative start clamps to zero, and an inverted window is rejected.
func timeWindow(startTime, endTime int64) (int64, int64, error) {
	if endTime <= 0 {
		endTime = time.Now().Unix()
	}
	if startTime < 0 {
		startTime = 0
	}
	if startTime > endTime {
		return 0, 0, fmt.Errorf("%w: start time %d after end time %d", ErrInput, startTime, endTime)
	}
	return startTime, endTime, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
