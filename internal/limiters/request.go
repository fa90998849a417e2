package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goOTP/internal/rate"
	"github.com/redis/go-redis/v9"
)

var (
	ErrRequestRateLimited        = errors.New("otp request rate limited")
	ErrRequestLimiterUnavailable = errors.New("otp request limiter unavailable")
)

type RequestConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxRequests              int
	Window                   time.Duration
	MaxVerifyPerIP           int
	RedisPrefix              string
}

// RequestLimiter bounds how often codes can be requested and checked.
// Issue and resend share one budget per identity.
type RequestLimiter struct {
	window *rate.FixedWindow
	config RequestConfig
}

func NewRequestLimiter(redisClient redis.UniversalClient, cfg RequestConfig) *RequestLimiter {
	prefix := cfg.RedisPrefix
	if prefix == "" {
		prefix = "otp"
	}
	return &RequestLimiter{
		window: rate.New(redisClient, prefix),
		config: cfg,
	}
}

// CheckIssue counts one issue or resend request for identity and ip.
func (l *RequestLimiter) CheckIssue(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.hit(ctx, l.issueIdentityKey(identity), l.config.MaxRequests); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.hit(ctx, l.window.Key("iip", ip), l.config.MaxRequests); err != nil {
			return err
		}
	}
	return nil
}

// CheckVerify counts one verification request from ip. Per-identity guessing
// is already bounded by the record's attempt counter.
func (l *RequestLimiter) CheckVerify(ctx context.Context, ip string) error {
	if l == nil || !l.config.EnableIPThrottle || ip == "" {
		return nil
	}
	return l.hit(ctx, l.window.Key("vip", ip), l.config.MaxVerifyPerIP)
}

// ResetIdentity clears the identity's issue budget after a successful
// verification.
func (l *RequestLimiter) ResetIdentity(ctx context.Context, identity string) error {
	if l == nil || !l.config.EnableIdentifierThrottle {
		return nil
	}
	if err := l.window.Reset(ctx, l.issueIdentityKey(identity)); err != nil {
		return fmt.Errorf("%w: %v", ErrRequestLimiterUnavailable, err)
	}
	return nil
}

func (l *RequestLimiter) issueIdentityKey(identity string) string {
	return l.window.Key("iid", identity)
}

func (l *RequestLimiter) hit(ctx context.Context, key string, limit int) error {
	err := l.window.Hit(ctx, key, limit, l.config.Window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrRequestRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrRequestLimiterUnavailable, err)
	}
}
