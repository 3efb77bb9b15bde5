// Package eventbus is a small generic pub/sub used to fan request metadata out to
// history, metrics and the terminal.
package eventbus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

const DefaultBufferSize = 256

// EventBus delivers every published event to every live subscriber. Publish never
// blocks and counts drops; PublishContext waits for slow subscribers until ctx ends.
type EventBus[T any] struct {
	subscribers   *xsync.Map[string, *subscriber[T]]
	published     *xsync.Counter
	isShutdown    atomic.Bool
	subscriberSeq atomic.Uint64
	bufferSize    int
}

type subscriber[T any] struct {
	ch      chan T
	id      string
	dropped atomic.Uint64
	mu      sync.RWMutex // held for reading while sending, for writing while closing
	closed  bool
}

func New[T any]() *EventBus[T] {
	return NewWithBuffer[T](DefaultBufferSize)
}

func NewWithBuffer[T any](bufferSize int) *EventBus[T] {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		published:   xsync.NewCounter(),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel of events and a cleanup func. The subscription also
// ends when ctx is done or the bus shuts down, which closes the channel.
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber[T]{
		id: "sub_" + strconv.FormatUint(eb.subscriberSeq.Add(1), 10),
		ch: make(chan T, eb.bufferSize),
	}
	eb.subscribers.Store(sub.id, sub)

	// Shutdown may have run between the check and the store
	if eb.isShutdown.Load() {
		eb.unsubscribe(sub.id)
	}

	stop := context.AfterFunc(ctx, func() { eb.unsubscribe(sub.id) })
	return sub.ch, func() {
		stop()
		eb.unsubscribe(sub.id)
	}
}

// Publish offers event to every subscriber without waiting and returns how many took it
func (eb *EventBus[T]) Publish(event T) int {
	if eb.isShutdown.Load() {
		return 0
	}
	eb.published.Inc()

	delivered := 0
	eb.subscribers.Range(func(_ string, sub *subscriber[T]) bool {
		if sub.trySend(event) {
			delivered++
		} else {
			sub.dropped.Add(1)
		}
		return true
	})
	return delivered
}

// PublishContext waits on each subscriber in turn until it accepts event or ctx is
// done. It returns the deliveries made and ctx.Err() if it gave up.
func (eb *EventBus[T]) PublishContext(ctx context.Context, event T) (int, error) {
	if eb.isShutdown.Load() {
		return 0, nil
	}
	eb.published.Inc()

	delivered := 0
	var err error
	eb.subscribers.Range(func(_ string, sub *subscriber[T]) bool {
		if err != nil {
			sub.dropped.Add(1)
			return true
		}
		ok, sendErr := sub.send(ctx, event)
		switch {
		case sendErr != nil:
			err = sendErr
			sub.dropped.Add(1)
		case ok:
			delivered++
		}
		return true
	})
	return delivered, err
}

func (s *subscriber[T]) trySend(event T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

func (s *subscriber[T]) send(ctx context.Context, event T) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, nil
	}
	select {
	case s.ch <- event:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Shutdown closes every subscriber channel. Later publishes are no-ops.
func (eb *EventBus[T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}
	eb.subscribers.Range(func(id string, _ *subscriber[T]) bool {
		eb.unsubscribe(id)
		return true
	})
}

func (eb *EventBus[T]) unsubscribe(id string) {
	if sub, ok := eb.subscribers.LoadAndDelete(id); ok {
		sub.close()
	}
}

// EventBusStats provides aggregate metrics
type EventBusStats struct {
	Published   int64  `json:"published"`
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped"`
	IsShutdown  bool   `json:"is_shutdown"`
}

func (eb *EventBus[T]) Stats() EventBusStats {
	stats := EventBusStats{
		Published:  eb.published.Value(),
		IsShutdown: eb.isShutdown.Load(),
	}
	eb.subscribers.Range(func(_ string, sub *subscriber[T]) bool {
		stats.Subscribers++
		stats.Dropped += sub.dropped.Load()
		return true
	})
	return stats
}
