// Package clock abstracts wall-clock reads and tickers so that expiry and
// sweeping can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source consumed by goOTP.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors the subset of *time.Ticker used by the reaper.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Fake is a manually advanced Clock. Tickers created from it fire during
// Advance when their next deadline is reached. Like *time.Ticker, a fake
// ticker drops ticks when its receiver is not keeping up.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTicker{
		clock:  f,
		period: d,
		next:   f.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Set moves the clock to t and fires any due tickers. Moving backwards is
// allowed and fires nothing.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	due := f.collectDueLocked()
	f.mu.Unlock()

	for _, d := range due {
		d.fire()
	}
}

// Advance moves the clock forward by d and fires any due tickers.
func (f *Fake) Advance(d time.Duration) {
	f.Set(f.Now().Add(d))
}

// Tickers reports the number of live tickers, which lets tests wait until a
// background goroutine has registered its ticker.
func (f *Fake) Tickers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

type dueTick struct {
	t  *fakeTicker
	at time.Time
}

func (d dueTick) fire() {
	select {
	case d.t.ch <- d.at:
	default:
	}
}

func (f *Fake) collectDueLocked() []dueTick {
	var due []dueTick
	for _, t := range f.tickers {
		if t.next.After(f.now) {
			continue
		}
		due = append(due, dueTick{t: t, at: f.now})
		for !t.next.After(f.now) {
			t.next = t.next.Add(t.period)
		}
	}
	return due
}

func (f *Fake) removeTicker(t *fakeTicker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.tickers {
		if cur == t {
			f.tickers = append(f.tickers[:i], f.tickers[i+1:]...)
			return
		}
	}
}

type fakeTicker struct {
	clock  *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
	once   sync.Once
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.once.Do(func() {
		t.clock.removeTicker(t)
	})
}
