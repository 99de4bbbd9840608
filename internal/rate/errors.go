package rate

import "errors"

var (
	// ErrRateLimited reports an exhausted login or code-send attempt budget
	// for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports that the throttle counters could not be
	// read or written.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
