package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// RedisLimiter mirrors DocstoreLimiter's fixed-window semantics on
// Redis for deployments that already run one. Counters self-expire at
// twice the window length, so no sweep is needed.
type RedisLimiter struct {
	client *redis.Client
	salt   string
	logger logger.Interface
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, salt string, log logger.Interface) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		salt:   salt,
		logger: log.Named("ratelimit"),
		now:    time.Now,
	}
}

func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

type redisWindow struct {
	WindowStartedAtMs int64 `json:"windowStartedAtMs"`
	Count             int64 `json:"count"`
}

func (l *RedisLimiter) Consume(ctx context.Context, scope, key string, window time.Duration, maxRequests int) (*Result, error) {
	if maxRequests <= 0 || window <= 0 {
		return nil, apperrors.NewInvariantError("rate limit window and max requests must be positive")
	}

	redisKey := "ratelimit:" + hashIdentity(l.salt, scope, key)
	now := l.now().UTC()

	var state redisWindow
	raw, err := l.client.Get(ctx, redisKey).Result()
	switch {
	case err == redis.Nil:
		// no window yet
	case err != nil:
		return nil, fmt.Errorf("failed to read rate limit counter: %w", err)
	default:
		if uerr := json.Unmarshal([]byte(raw), &state); uerr != nil {
			l.logger.Warnw("discarding unreadable rate limit counter", "key", redisKey, "error", uerr)
			state = redisWindow{}
		}
	}

	windowStart := now
	var count int64
	if state.WindowStartedAtMs > 0 {
		start := time.UnixMilli(state.WindowStartedAtMs).UTC()
		if now.Sub(start) < window {
			windowStart = start
			count = state.Count
		}
	}

	if count+1 > int64(maxRequests) {
		return nil, apperrors.NewRateLimitedError(scope, window, maxRequests)
	}

	updated := redisWindow{WindowStartedAtMs: windowStart.UnixMilli(), Count: count + 1}
	body, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rate limit counter: %w", err)
	}
	if err := l.client.Set(ctx, redisKey, body, 2*window).Err(); err != nil {
		return nil, fmt.Errorf("failed to persist rate limit counter: %w", err)
	}

	return &Result{Count: updated.Count, WindowStartedAt: windowStart}, nil
}
