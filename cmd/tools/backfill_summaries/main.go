package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"hnscan-clone/internal/repository"
)

func main() {
	var (
		fromTime int64
		days     int
		full     bool
	)

	flag.Int64Var(&fromTime, "from", 0, "recompute day rows from this unix time (inclusive)")
	flag.IntVar(&days, "days", 0, "recompute the last N days")
	flag.BoolVar(&full, "full", false, "recompute every day row regardless of other flags")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is required")
	}

	repo, err := repository.NewRepository(dbURL)
	if err != nil {
		log.Fatalf("failed to connect repository: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := time.Now()

	switch {
	case full:
		log.Printf("[backfill_summaries] running full rebuild")
		fromTime = 0
	case days > 0:
		fromTime = time.Now().Add(-time.Duration(days) * 24 * time.Hour).Unix()
		log.Printf("[backfill_summaries] rebuilding last %d days (from %d)", days, fromTime)
	case fromTime > 0:
		log.Printf("[backfill_summaries] rebuilding from %d", fromTime)
	default:
		log.Printf("[backfill_summaries] no range provided, defaulting to full rebuild")
		fromTime = 0
	}

	if err := repo.RebuildSummaries(ctx, fromTime); err != nil {
		log.Fatalf("[backfill_summaries] rebuild failed: %v", err)
	}

	log.Printf("[backfill_summaries] done in %s", time.Since(started).Truncate(time.Second))
}
