// Package reaper runs the periodic sweep that evicts expired verification
// records. Expiry is enforced lazily on every verification; the reaper only
// bounds memory for identities that never come back.
package reaper

import (
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"go.uber.org/zap"
)

var errInvalidInterval = errors.New("reaper interval must be > 0")

// SweepFunc evicts everything that has expired as of now and returns the
// number of evicted records.
type SweepFunc func(now time.Time) int

type Config struct {
	Interval time.Duration
	Clock    clock.Clock
	Sweep    SweepFunc
	Logger   *zap.Logger

	// OnSweep, when set, is called after every sweep with the eviction count.
	OnSweep func(evicted int)
}

// Reaper owns one background goroutine between Start and Stop.
type Reaper struct {
	cfg      Config
	ticker   clock.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	start    sync.Once
	stopOnce sync.Once
}

func New(cfg Config) (*Reaper, error) {
	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}
	if cfg.Sweep == nil {
		return nil, errors.New("reaper sweep func is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Reaper{
		cfg:  cfg,
		done: make(chan struct{}),
	}, nil
}

// Start creates the ticker synchronously, so a fake clock advanced right
// after Start is guaranteed to reach it.
func (r *Reaper) Start() {
	r.start.Do(func() {
		r.ticker = r.cfg.Clock.NewTicker(r.cfg.Interval)
		r.wg.Add(1)
		go r.run()
	})
}

func (r *Reaper) run() {
	defer r.wg.Done()
	defer r.ticker.Stop()

	for {
		select {
		case <-r.ticker.C():
			r.SweepOnce()
		case <-r.done:
			return
		}
	}
}

// SweepOnce performs a single sweep at the clock's current time.
func (r *Reaper) SweepOnce() int {
	evicted := r.cfg.Sweep(r.cfg.Clock.Now())
	if evicted > 0 {
		r.cfg.Logger.Debug("reaper evicted expired records", zap.Int("evicted", evicted))
	}
	if r.cfg.OnSweep != nil {
		r.cfg.OnSweep(evicted)
	}
	return evicted
}

// Stop signals the goroutine and waits for it to exit. Safe to call more
// than once and before Start.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}
