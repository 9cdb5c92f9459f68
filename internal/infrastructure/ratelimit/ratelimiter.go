package ratelimit

import (
	"context"
	"time"
)

// Result reports the state of the window after a successful consume.
type Result struct {
	Count           int64
	WindowStartedAt time.Time
}

// Limiter enforces a fixed-window request quota per (scope, key) pair.
// Consume either records the request and returns the updated window
// state, or rejects it with a RateLimitedError without recording
// anything.
type Limiter interface {
	Consume(ctx context.Context, scope, key string, window time.Duration, maxRequests int) (*Result, error)
}
