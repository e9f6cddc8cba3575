package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hnscan-clone/internal/chain"
)

// Measures hsd call latency for the access patterns the indexer and the
// live endpoints use.
func main() {
	var (
		height uint64
		name   string
		sweep  int
	)
	flag.Uint64Var(&height, "height", 0, "block height to fetch (0 uses the tip)")
	flag.StringVar(&name, "name", "nb", "name to resolve via getnameinfo")
	flag.IntVar(&sweep, "blocks", 5, "consecutive blocks for the sweep benchmark")
	flag.Parse()

	hsdURL := os.Getenv("HSD_URL")
	if hsdURL == "" {
		hsdURL = "http://127.0.0.1:12037"
	}

	client := chain.NewClient(hsdURL, os.Getenv("HSD_API_KEY"))
	ctx := context.Background()

	fmt.Printf("========== %s ==========\n", hsdURL)

	// 1. Node info
	t0 := time.Now()
	info, err := client.Info(ctx)
	d := time.Since(t0)
	if err != nil {
		log.Fatalf("  Info: FAIL (%v) [%v]", err, d)
	}
	fmt.Printf("  Info: OK [%v] network=%s height=%d\n", d, info.Network, info.Chain.Height)

	if height == 0 {
		height = info.Chain.Height
	}

	// 2. Chain entry, the header-level fetch the reorg walk does
	t0 = time.Now()
	entry, err := client.EntryByHeight(ctx, height)
	d = time.Since(t0)
	if err != nil {
		fmt.Printf("  EntryByHeight(%d): FAIL (%v) [%v]\n", height, err, d)
	} else {
		fmt.Printf("  EntryByHeight(%d): OK [%v] hash=%s\n", height, d, entry.Hash)
	}

	// 3. Full block, what the scan fetches per height
	t0 = time.Now()
	block, err := client.BlockByHeight(ctx, height)
	d = time.Since(t0)
	if err != nil {
		fmt.Printf("  BlockByHeight(%d): FAIL (%v) [%v]\n", height, err, d)
		return
	}
	fmt.Printf("  BlockByHeight(%d): OK [%v] txs=%d\n", height, d, len(block.Txs))

	// 4. Consecutive-block sweep
	from := uint64(0)
	if height >= uint64(sweep) {
		from = height - uint64(sweep) + 1
	}
	t0 = time.Now()
	fetched := 0
	for h := from; h <= height; h++ {
		if _, err := client.BlockByHeight(ctx, h); err != nil {
			fmt.Printf("  Sweep: FAIL at height %d: %v\n", h, err)
			break
		}
		fetched++
	}
	d = time.Since(t0)
	if fetched > 0 {
		fmt.Printf("  %d consecutive BlockByHeight: [%v] avg=%v\n", fetched, d, d/time.Duration(fetched))
	}

	// 5. Name resolution over RPC
	t0 = time.Now()
	ni, err := client.NameInfo(ctx, name)
	d = time.Since(t0)
	if err != nil {
		fmt.Printf("  NameInfo(%q): FAIL (%v) [%v]\n", name, err, d)
	} else {
		state := "unopened"
		if ni.Info != nil {
			state = ni.Info.State
		}
		fmt.Printf("  NameInfo(%q): OK [%v] state=%s\n", name, d, state)
	}

	// 6. Mempool snapshot
	t0 = time.Now()
	txids, err := client.MempoolTxids(ctx)
	d = time.Since(t0)
	if err != nil {
		fmt.Printf("  MempoolTxids: FAIL (%v) [%v]\n", err, d)
	} else {
		fmt.Printf("  MempoolTxids: OK [%v] txs=%d\n", d, len(txids))
	}

	if os.Getenv("VERBOSE") != "" {
		// 7. Full per-height ingest simulation: entry, block, first tx.
		t0 = time.Now()
		client.EntryByHeight(ctx, height)
		b, err := client.BlockByHeight(ctx, height)
		if err == nil && len(b.Txs) > 0 {
			client.Tx(ctx, b.Txs[0].Hash)
		}
		d = time.Since(t0)
		fmt.Printf("  Full ingest simulation: [%v]\n", d)
	}
}
