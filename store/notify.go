package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jonwraymond/mcpgate/observe"
)

// Update is one published counter value.
type Update struct {
	Name  string
	Value int64
}

// BroadcasterConfig configures a Broadcaster.
type BroadcasterConfig struct {
	// Buffer is the per-subscriber channel capacity.
	// Default: 64
	Buffer int

	// Logger receives a debug entry per dropped update. Optional.
	Logger observe.Logger
}

// Broadcaster fans out updates to subscribers of a name.
//
// Publish never blocks: a subscriber whose buffer is full misses the
// update.
type Broadcaster struct {
	buffer  int
	logger  observe.Logger
	dropped atomic.Int64

	mu   sync.RWMutex
	subs map[string]map[string]*subscription // name -> id -> subscription
	ids  map[string]string                   // id -> name
}

type subscription struct {
	ch   chan Update
	done chan struct{}
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(config ...BroadcasterConfig) *Broadcaster {
	var cfg BroadcasterConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Broadcaster{
		buffer: cfg.Buffer,
		logger: cfg.Logger,
		subs:   make(map[string]map[string]*subscription),
		ids:    make(map[string]string),
	}
}

// Subscribe registers for updates to name. The channel is closed after ctx
// is done or Unsubscribe is called with the returned id.
func (b *Broadcaster) Subscribe(ctx context.Context, name string) (<-chan Update, string) {
	id := uuid.NewString()
	sub := &subscription{
		ch:   make(chan Update, b.buffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[name] == nil {
		b.subs[name] = make(map[string]*subscription)
	}
	b.subs[name][id] = sub
	b.ids[id] = name
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.Unsubscribe(id)
		case <-sub.done:
		}
	}()

	return sub.ch, id
}

// Unsubscribe removes the subscription and closes its channel. Unknown ids
// are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	name, ok := b.ids[id]
	if !ok {
		return
	}
	delete(b.ids, id)
	sub := b.subs[name][id]
	delete(b.subs[name], id)
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
	close(sub.done)
	close(sub.ch)
}

// Publish offers value to every subscriber of name and reports how many
// received it.
func (b *Broadcaster) Publish(name string, value int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, sub := range b.subs[name] {
		select {
		case sub.ch <- Update{Name: name, Value: value}:
			delivered++
		default:
			b.dropped.Add(1)
			b.logger.Debug(context.Background(), "update dropped",
				observe.Field{Key: "counter", Value: name},
				observe.Field{Key: "subscription", Value: id},
			)
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions for name.
func (b *Broadcaster) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Dropped returns the number of updates discarded for full subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}
