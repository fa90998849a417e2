package goOTP

import (
	"context"
	"sync"
	"sync/atomic"
)

// dispatcher hands items to handle on a single background goroutine through
// a bounded queue. Close drains whatever is queued before returning. All
// methods are nil-safe so disabled features can keep a nil dispatcher.
type dispatcher[T any] struct {
	handle     func(T)
	dropIfFull bool
	ch         chan T
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closeOnce  sync.Once

	// mu orders Submit against Close: Close flips closed under the write
	// lock, so every accepted item is queued before the worker drains.
	mu     sync.RWMutex
	closed bool
}

func newDispatcher[T any](buffer int, dropIfFull bool, handle func(T)) *dispatcher[T] {
	if buffer <= 0 {
		buffer = 1
	}

	d := &dispatcher[T]{
		handle:     handle,
		dropIfFull: dropIfFull,
		ch:         make(chan T, buffer),
		done:       make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *dispatcher[T]) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.handle(item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.handle(item)
				default:
					return
				}
			}
		}
	}
}

// Submit queues item and reports whether it was accepted. With dropIfFull a
// full queue drops the item immediately; otherwise Submit waits for room
// until ctx is done.
func (d *dispatcher[T]) Submit(ctx context.Context, item T) bool {
	if d == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	if d.dropIfFull {
		select {
		case d.ch <- item:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	// The worker keeps draining until Close, so a blocked send makes
	// progress or ends with ctx.
	select {
	case d.ch <- item:
		return true
	case <-ctx.Done():
		d.dropped.Add(1)
		return false
	}
}

func (d *dispatcher[T]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()

		d.wg.Wait()
	})
}

func (d *dispatcher[T]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
