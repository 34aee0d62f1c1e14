// Package broadcast fans a single ordered stream of values out to any number of subscribers.
//
// Every subscription owns an unbounded FIFO drained by its own goroutine, so Publish never
// blocks on a slow or absent reader: a slow subscriber only grows its own queue. Each
// subscription observes values in publish order, and all subscriptions observe the same relative
// order. Callers publishing from several goroutines must serialize their Publish calls if they
// need a single global order.
package broadcast

import (
	"sync"
	"time"

	goutils "go.viam.com/utils"
)

// DefaultPendingLimit is how many values published before the first subscription are retained
// for it.
const DefaultPendingLimit = 1

// DefaultDrainTimeout is how long a subscription waits for its reader to take each remaining
// value once the Broadcaster is closed.
const DefaultDrainTimeout = 10 * time.Second

// Options configures a Broadcaster.
type Options struct {
	// PendingLimit bounds the values kept for the first subscriber when nothing has subscribed
	// yet; only the most recent ones are kept. Zero means DefaultPendingLimit, negative disables
	// the buffer.
	PendingLimit int
	// DrainTimeout bounds how long, after Close, a subscription waits for its reader to take
	// each value still queued. When it expires the rest are discarded and the channel is
	// closed. Zero means DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// A Broadcaster delivers every published value to every current subscriber.
type Broadcaster[T any] struct {
	mu            sync.Mutex
	subs          map[*Subscription[T]]struct{}
	pending       []T
	pendingLimit  int
	hadSubscriber bool
	closed        bool
	closedCh      chan struct{}
	drainTimeout  time.Duration
}

// New returns an open Broadcaster.
func New[T any](opts Options) *Broadcaster[T] {
	limit := opts.PendingLimit
	if limit == 0 {
		limit = DefaultPendingLimit
	}
	if limit < 0 {
		limit = 0
	}
	drainTimeout := opts.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	return &Broadcaster[T]{
		subs:         map[*Subscription[T]]struct{}{},
		pendingLimit: limit,
		closedCh:     make(chan struct{}),
		drainTimeout: drainTimeout,
	}
}

// Publish queues the value for every current subscriber and returns without waiting for any of
// them. Values published before anything has ever subscribed are kept, up to the pending limit,
// for the first subscriber. Publishing after Close is a no-op.
func (b *Broadcaster[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if !b.hadSubscriber {
		if b.pendingLimit == 0 {
			return
		}
		b.pending = append(b.pending, value)
		if len(b.pending) > b.pendingLimit {
			b.pending = b.pending[len(b.pending)-b.pendingLimit:]
		}
		return
	}
	for sub := range b.subs {
		sub.push(value)
	}
}

// Subscribe attaches a new subscription that receives every value published after this call
// returns. The first subscription also receives the pending values. Subscribing to a closed
// Broadcaster yields a subscription whose channel is already closed.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		b:      b,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan T),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.draining = true
		close(sub.out)
		return sub
	}
	if !b.hadSubscriber {
		b.hadSubscriber = true
		sub.queue = append(sub.queue, b.pending...)
		b.pending = nil
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	goutils.PanicCapturingGo(sub.deliver)
	return sub
}

// SubscriberCount returns the number of attached subscriptions.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches every subscription. Values already queued are still delivered, after which each
// subscription's channel is closed. Close does not wait for subscribers to read them, but a
// reader that stops receiving for longer than the drain timeout loses the remaining values.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.closedCh)
	b.pending = nil
	for sub := range b.subs {
		sub.drain()
		delete(b.subs, sub)
	}
}

func (b *Broadcaster[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// A Subscription is one subscriber's view of a Broadcaster.
type Subscription[T any] struct {
	b *Broadcaster[T]

	mu       sync.Mutex
	queue    []T
	draining bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
	out    chan T
}

// Events returns the channel values are delivered on. It is closed after Unsubscribe, or once
// the queue is drained after the Broadcaster is closed. A reader that stops early should
// Unsubscribe; otherwise the remaining values are dropped after the drain timeout.
func (s *Subscription[T]) Events() <-chan T {
	return s.out
}

// Unsubscribe detaches the subscription. Values not yet delivered are discarded. It is safe to
// call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.b.remove(s)
		close(s.done)
	})
}

func (s *Subscription[T]) push(value T) {
	s.mu.Lock()
	s.queue = append(s.queue, value)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pop blocks until a value is queued. It returns false once the subscription should stop
// delivering: after Unsubscribe, or when draining and the queue is empty.
func (s *Subscription[T]) pop() (T, bool) {
	var zero T
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return next, true
		}
		draining := s.draining
		s.mu.Unlock()
		if draining {
			return zero, false
		}

		select {
		case <-s.notify:
		case <-s.done:
			return zero, false
		}
	}
}

func (s *Subscription[T]) deliver() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		next, ok := s.pop()
		if !ok {
			return
		}
		if !s.send(next) {
			return
		}
	}
}

// send hands the value to the reader. Once the Broadcaster is closed it waits at most the drain
// timeout, so an abandoned subscription does not keep its goroutine forever.
func (s *Subscription[T]) send(value T) bool {
	select {
	case s.out <- value:
		return true
	case <-s.done:
		return false
	case <-s.b.closedCh:
	}

	timer := time.NewTimer(s.b.drainTimeout)
	defer timer.Stop()
	select {
	case s.out <- value:
		return true
	case <-s.done:
		return false
	case <-timer.C:
		return false
	}
}
