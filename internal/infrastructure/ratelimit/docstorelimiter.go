package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// counterRecord is the stored shape of one fixed-window counter.
// ExpiresAt is a cleanup hint for background sweeps, not an
// enforcement mechanism; stale windows are detected by comparing
// WindowStartedAtMs against the clock on read.
type counterRecord struct {
	ID                string `json:"id"`
	Scope             string `json:"scope"`
	WindowSec         int64  `json:"windowSec"`
	WindowStartedAtMs int64  `json:"windowStartedAtMs"`
	Count             int64  `json:"count"`
	UpdatedAt         string `json:"updatedAt"`
	ExpiresAt         int64  `json:"expiresAt"`
}

// DocstoreLimiter implements fixed-window rate limiting on top of the
// document store. Counter identities are salted hashes so raw caller
// keys never appear in storage.
type DocstoreLimiter struct {
	store  docstore.Store
	salt   string
	logger logger.Interface
	now    func() time.Time
}

func NewDocstoreLimiter(store docstore.Store, salt string, log logger.Interface) *DocstoreLimiter {
	return &DocstoreLimiter{
		store:  store,
		salt:   salt,
		logger: log.Named("ratelimit"),
		now:    time.Now,
	}
}

// WithClock overrides the limiter's clock. Test hook.
func (l *DocstoreLimiter) WithClock(now func() time.Time) *DocstoreLimiter {
	l.now = now
	return l
}

func (l *DocstoreLimiter) Consume(ctx context.Context, scope, key string, window time.Duration, maxRequests int) (*Result, error) {
	if maxRequests <= 0 || window <= 0 {
		return nil, apperrors.NewInvariantError("rate limit window and max requests must be positive")
	}

	id := hashIdentity(l.salt, scope, key)
	storeKey := docstore.RateLimitKey(id)
	now := l.now().UTC()

	rec, err := l.load(ctx, storeKey)
	if err != nil {
		return nil, err
	}

	windowStart := now
	var count int64
	if rec != nil {
		start := time.UnixMilli(rec.WindowStartedAtMs).UTC()
		if now.Sub(start) < window {
			windowStart = start
			count = rec.Count
		}
	}

	if count+1 > int64(maxRequests) {
		// Rejected requests leave the counter untouched so a burst
		// cannot extend its own punishment.
		return nil, apperrors.NewRateLimitedError(scope, window, maxRequests)
	}

	updated := counterRecord{
		ID:                id,
		Scope:             scope,
		WindowSec:         int64(window / time.Second),
		WindowStartedAtMs: windowStart.UnixMilli(),
		Count:             count + 1,
		UpdatedAt:         now.Format(time.RFC3339Nano),
		ExpiresAt:         windowStart.Add(2 * window).Unix(),
	}
	body, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rate limit counter: %w", err)
	}
	if err := l.store.Put(ctx, storeKey, body); err != nil {
		return nil, fmt.Errorf("failed to persist rate limit counter: %w", err)
	}

	return &Result{Count: updated.Count, WindowStartedAt: windowStart}, nil
}

func (l *DocstoreLimiter) load(ctx context.Context, storeKey string) (*counterRecord, error) {
	doc, err := l.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	var rec counterRecord
	if err := json.Unmarshal(doc.Body, &rec); err != nil {
		l.logger.Warnw("discarding unreadable rate limit counter", "key", storeKey, "error", err)
		return nil, nil
	}
	return &rec, nil
}

func hashIdentity(salt, scope, key string) string {
	sum := sha256.Sum256([]byte(salt + ":" + scope + ":" + key))
	return hex.EncodeToString(sum[:])
}
