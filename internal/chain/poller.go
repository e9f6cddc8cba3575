package chain

import (
	"context"
	"errors"
	"log"
	"time"

	"hnscan-clone/internal/eventbus"
)

// MaxReorgDepth bounds the walk back to a fork point. A divergence
// deeper than this triggers a full rescan from genesis instead.
const MaxReorgDepth = 1000

// TipSource is the subset of the node client the poller reads. Kept
// narrow so tests can fake a node.
type TipSource interface {
	Tip(ctx context.Context) (*Tip, error)
	EntryByHeight(ctx context.Context, height uint64) (*Entry, error)
}

// HashSource exposes the indexed chain the poller compares against:
// the indexer head and the stored hash at a height. Implemented by the
// repository.
type HashSource interface {
	Head(ctx context.Context) (uint64, error)
	HashAt(ctx context.Context, height uint64) (string, error)
}

// Poller synthesizes the node's event surface by polling the tip. It
// publishes connect once, block connect when the tip advances, chain
// reset when the stored chain and the node's chain diverge, and error
// events on poll failures.
type Poller struct {
	tips     TipSource
	hashes   HashSource
	bus      *eventbus.Bus
	interval time.Duration

	connected  bool
	lastHeight uint64
	lastHash   string
}

// NewPoller wires a poller over a node client and the indexed-hash
// source.
func NewPoller(tips TipSource, hashes HashSource, bus *eventbus.Bus, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{tips: tips, hashes: hashes, bus: bus, interval: interval}
}

// Run polls until the context is cancelled. Errors are published and
// logged; the loop always continues on the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[poller] stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick performs one poll cycle. Exposed to tests via Run's first
// iteration semantics.
func (p *Poller) tick(ctx context.Context) {
	tip, err := p.tips.Tip(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[poller] tip poll failed: %v", err)
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeError, Time: time.Now(), Err: err})
		return
	}

	if !p.connected {
		p.connected = true
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeConnect, Height: tip.Height, Hash: tip.Hash, Time: time.Now()})
	}

	if tip.Height == p.lastHeight && tip.Hash == p.lastHash {
		return
	}

	forkHeight, diverged, err := p.findDivergence(ctx)
	if err != nil {
		log.Printf("[poller] reorg check failed: %v", err)
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeError, Time: time.Now(), Err: err})
		return
	}
	if diverged {
		log.Printf("[poller] chain reset to height %d", forkHeight)
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeChainReset, Height: forkHeight, Time: time.Now()})
	}

	p.lastHeight = tip.Height
	p.lastHash = tip.Hash
	p.bus.Publish(eventbus.Event{Type: eventbus.TypeBlockConnect, Height: tip.Height, Hash: tip.Hash, Time: time.Now()})
}

// findDivergence compares stored hashes against the node's main chain,
// walking down from the indexer head until they agree. Returns the
// highest height at which both chains match. A walk past MaxReorgDepth
// resets to genesis.
func (p *Poller) findDivergence(ctx context.Context) (forkHeight uint64, diverged bool, err error) {
	head, err := p.hashes.Head(ctx)
	if err != nil {
		return 0, false, err
	}
	if head == 0 {
		return 0, false, nil
	}

	for depth := uint64(0); depth <= MaxReorgDepth; depth++ {
		if depth > head {
			return 0, true, nil
		}
		h := head - depth
		stored, err := p.hashes.HashAt(ctx, h)
		if err != nil {
			return 0, false, err
		}
		if stored == "" {
			// Gap in the index; let the scan repair it.
			continue
		}
		entry, err := p.tips.EntryByHeight(ctx, h)
		if errors.Is(err, ErrNotFound) {
			// Node chain is shorter than ours here; keep walking.
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if entry.Hash == stored {
			if depth == 0 {
				return head, false, nil
			}
			return h, true, nil
		}
	}

	log.Printf("[poller] divergence deeper than %d blocks, forcing full rescan", MaxReorgDepth)
	return 0, true, nil
}
