package eventbus

import (
	"sync"
	"time"
)

// Event types carried on the bus. These mirror the upstream node's
// event surface: the tip poller publishes them and the indexer,
// websocket hub and admin status consume them.
const (
	TypeConnect      = "connect"
	TypeBlockConnect = "block connect"
	TypeChainReset   = "chain reset"
	TypeError        = "error"
)

// Event represents a chain event routed through the bus. Height and
// Hash describe the tip for connect/block events and the reset target
// for chain reset events. Err is set on error events only.
type Event struct {
	Type string
	// Height is the node tip for block connect, the rollback target
	// for chain reset.
	Height uint64
	Hash   string
	Time   time.Time
	Err    error
}

// Bus is an in-process event bus routing chain events to subscribers
// by event type. Delivery uses Go channels and is safe for concurrent
// use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan<- Event
	closed      bool
}

// New creates a Bus ready for use.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan<- Event),
	}
}

// Subscribe registers a channel for events of the given type. The
// caller sizes the buffer; a full channel drops the event for that
// subscriber. That is the intended backpressure here: the indexer
// coalesces missed block events by scanning forward to the tip, so a
// drop never loses a block.
func (b *Bus) Subscribe(eventType string, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
}

// Publish sends an event to all subscribers of its type. Full
// subscriber channels are skipped. Publish is a no-op after Close.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[evt.Type] {
		select {
		case ch <- evt:
		default:
			// drop if subscriber is slow
		}
	}
}

// Close marks the bus as closed. Subscriber channels are not closed;
// that remains the caller's responsibility.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
