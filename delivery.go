package goOTP

import (
	"context"
	"time"
)

// Deliverer transmits a freshly issued code to its identity (email, SMS).
// It is invoked after the record is stored. Errors are logged, counted and
// audited but never change the outcome of the issuing call.
type Deliverer interface {
	Deliver(ctx context.Context, identity, code string) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, identity, code string) error

func (f DelivererFunc) Deliver(ctx context.Context, identity, code string) error {
	return f(ctx, identity, code)
}

type discardDeliverer struct{}

func (discardDeliverer) Deliver(context.Context, string, string) error { return nil }

type deliveryJob struct {
	identity string
	code     string
}

// newDeliveryDispatcher returns nil unless delivery is async.
func newDeliveryDispatcher(cfg DeliveryConfig, deliver func(ctx context.Context, job deliveryJob)) *dispatcher[deliveryJob] {
	if !cfg.Async {
		return nil
	}
	return newDispatcher(cfg.BufferSize, cfg.DropIfFull, func(job deliveryJob) {
		deliver(context.Background(), job)
	})
}

func deliveryContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
