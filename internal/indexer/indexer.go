package indexer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"hnscan-clone/internal/chain"
	"hnscan-clone/internal/consensus"
	"hnscan-clone/internal/eventbus"
	"hnscan-clone/internal/models"
	"hnscan-clone/internal/repository"
)

// Store is the slice of the repository the indexer writes through.
// Kept narrow so tests can run against an in-memory fake.
type Store interface {
	Head(ctx context.Context) (uint64, error)
	GetCoin(ctx context.Context, txid string, index uint32) (*models.Coin, error)
	GetNameRecord(ctx context.Context, nameHash string) (*models.Name, error)
	ApplyBlock(ctx context.Context, delta *repository.BlockDelta) error
	RollbackTo(ctx context.Context, height uint64) error
}

// Node is the subset of the chain client the indexer reads.
type Node interface {
	Tip(ctx context.Context) (*chain.Tip, error)
	EntryByHeight(ctx context.Context, height uint64) (*chain.Entry, error)
	BlockByHeight(ctx context.Context, height uint64) (*chain.Block, error)
}

// Config carries the indexer's network parameters, the pool
// attribution table and optional callbacks fired after each block is
// committed. Callbacks run on the scan goroutine and must not block.
type Config struct {
	Network *consensus.Network
	Pools   []models.Pool
	OnBlock func(models.Block)
	OnTxs   func([]models.Tx)
}

// Status is the indexer's live state, served by the admin API.
type Status struct {
	Head        uint64 `json:"head"`
	Syncing     bool   `json:"syncing"`
	LastError   string `json:"lastError,omitempty"`
	LastErrorAt int64  `json:"lastErrorAt,omitempty"`
}

// Indexer drives the store forward: it reacts to chain events by
// scanning from the stored head to the node tip, applying one block
// per transaction. A single mutex serializes scans and rollbacks; an
// event arriving mid-scan sets the pending flag and the running scan
// picks it up before releasing the lock, so bursts of block events
// coalesce into one pass.
type Indexer struct {
	store Store
	node  Node
	cfg   Config

	mu      sync.Mutex
	pending atomic.Bool

	head    atomic.Uint64
	syncing atomic.Bool

	runCtx context.Context

	errMu     sync.Mutex
	lastErr   string
	lastErrAt time.Time
}

// New builds an indexer over a store and a node. A nil network falls
// back to mainnet parameters.
func New(store Store, node Node, cfg Config) *Indexer {
	if cfg.Network == nil {
		cfg.Network = consensus.Main()
	}
	return &Indexer{store: store, node: node, cfg: cfg, runCtx: context.Background()}
}

// Run consumes chain events until the context is cancelled. Connect
// and block events trigger a scan; chain resets roll the store back
// before rescanning.
func (i *Indexer) Run(ctx context.Context, bus *eventbus.Bus) {
	i.runCtx = ctx

	blocks := make(chan eventbus.Event, 1)
	resets := make(chan eventbus.Event, 4)
	conns := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.TypeBlockConnect, blocks)
	bus.Subscribe(eventbus.TypeChainReset, resets)
	bus.Subscribe(eventbus.TypeConnect, conns)

	log.Printf("[indexer] started on %s", i.cfg.Network.Name)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[indexer] stopping: %v", ctx.Err())
			return
		case evt := <-resets:
			i.handleReset(ctx, evt.Height)
		case <-conns:
			i.runScan(ctx)
		case <-blocks:
			// A reset queued in the same poll cycle must unwind the
			// store before any new blocks go on top of it.
			select {
			case evt := <-resets:
				i.handleReset(ctx, evt.Height)
			default:
			}
			i.runScan(ctx)
		}
	}
}

// runScan scans to the tip if the indexer is idle; otherwise it flags
// the running scan to go around again.
func (i *Indexer) runScan(ctx context.Context) {
	if !i.mu.TryLock() {
		i.pending.Store(true)
		return
	}
	defer i.mu.Unlock()
	i.scanAndDrainLocked(ctx)
}

func (i *Indexer) scanAndDrainLocked(ctx context.Context) {
	for {
		if err := i.scanLocked(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[indexer] scan failed: %v", err)
			i.recordError(err)
		}
		if !i.pending.Swap(false) {
			return
		}
	}
}

// scanLocked indexes every block between the stored head and the node
// tip. The caller holds i.mu.
func (i *Indexer) scanLocked(ctx context.Context) error {
	head, err := i.store.Head(ctx)
	if err != nil {
		return fmt.Errorf("read head: %w", err)
	}
	i.head.Store(head)

	tip, err := i.node.Tip(ctx)
	if err != nil {
		return fmt.Errorf("read tip: %w", err)
	}
	if tip.Height <= head {
		return nil
	}

	i.syncing.Store(true)
	defer i.syncing.Store(false)

	if tip.Height-head > 1 {
		log.Printf("[indexer] catching up %d blocks (%d -> %d)", tip.Height-head, head, tip.Height)
	}
	for h := head + 1; h <= tip.Height; h++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := i.indexBlock(ctx, h, head, tip.Height); err != nil {
			return err
		}
		head = h
		i.head.Store(h)
	}
	return nil
}

// indexBlock fetches, transforms and commits one block. Entries at or
// below the stored head are stale event echoes and are skipped.
func (i *Indexer) indexBlock(ctx context.Context, height, head, tip uint64) error {
	entry, err := i.node.EntryByHeight(ctx, height)
	if err != nil {
		return fmt.Errorf("fetch entry %d: %w", height, err)
	}
	if entry.Height <= head {
		log.Printf("[indexer] stale entry %d at head %d, skipping", entry.Height, head)
		return nil
	}

	block, err := i.node.BlockByHeight(ctx, height)
	if err != nil {
		return fmt.Errorf("fetch block %d: %w", height, err)
	}

	delta, err := i.buildDelta(ctx, entry, block)
	if err != nil {
		return fmt.Errorf("build block %d: %w", height, err)
	}
	if err := i.store.ApplyBlock(ctx, delta); err != nil {
		return fmt.Errorf("apply block %d: %w", height, err)
	}

	if height%1000 == 0 || tip-height < 5 {
		log.Printf("[indexer] indexed block %d/%d (%d txs)", height, tip, len(block.Txs))
	}

	if i.cfg.OnBlock != nil {
		i.cfg.OnBlock(delta.Block)
	}
	if i.cfg.OnTxs != nil && len(delta.Txs) > 0 {
		i.cfg.OnTxs(delta.Txs)
	}
	return nil
}

// handleReset rolls the store back to the fork height and rescans the
// replacement chain.
func (i *Indexer) handleReset(ctx context.Context, height uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	log.Printf("[indexer] chain reset, rolling back to height %d", height)
	if err := i.store.RollbackTo(ctx, height); err != nil {
		log.Printf("[indexer] rollback to %d failed: %v", height, err)
		i.recordError(err)
		return
	}
	i.head.Store(height)
	i.scanAndDrainLocked(ctx)
}

// Rollback unwinds the store to the given height and kicks off an
// asynchronous rescan. Admin surface.
func (i *Indexer) Rollback(ctx context.Context, height uint64) error {
	i.mu.Lock()
	err := i.store.RollbackTo(ctx, height)
	if err == nil {
		i.head.Store(height)
	}
	i.mu.Unlock()
	if err != nil {
		return err
	}
	go i.runScan(i.runCtx)
	return nil
}

// Rescan drops everything above genesis and reindexes the whole chain
// in the background. Admin surface.
func (i *Indexer) Rescan(ctx context.Context) error {
	return i.Rollback(ctx, 0)
}

// TriggerScan kicks a scan without waiting for the poller. Admin
// surface.
func (i *Indexer) TriggerScan() {
	go i.runScan(i.runCtx)
}

// Status reports the indexer head, whether a scan is in flight, and
// the last scan error.
func (i *Indexer) Status() Status {
	s := Status{
		Head:    i.head.Load(),
		Syncing: i.syncing.Load(),
	}
	i.errMu.Lock()
	s.LastError = i.lastErr
	if !i.lastErrAt.IsZero() {
		s.LastErrorAt = i.lastErrAt.Unix()
	}
	i.errMu.Unlock()
	return s
}

func (i *Indexer) recordError(err error) {
	i.errMu.Lock()
	i.lastErr = err.Error()
	i.lastErrAt = time.Now()
	i.errMu.Unlock()
}
