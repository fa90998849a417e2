package rate

import "errors"

var (
	// ErrRateLimited is returned once a window's counter exceeds its limit.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis failure while counting.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
