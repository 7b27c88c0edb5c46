package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimit struct {
	Window      time.Duration // e.g., 1 minute, 1 hour
	MaxAttempts int           // max attempts per window
}

// LoginLimiter throttles login attempts per identifier using a sliding
// window kept in a Redis sorted set.
type LoginLimiter struct {
	redis  *redis.Client
	limit  RateLimit
	prefix string
	now    func() time.Time
}

func NewLoginLimiter(redis *redis.Client, limit RateLimit) *LoginLimiter {
	return &LoginLimiter{
		redis:  redis,
		limit:  limit,
		prefix: "login_rate_limit",
		now:    time.Now,
	}
}

func (l *LoginLimiter) key(identifier string) string {
	return fmt.Sprintf("%s:%s", l.prefix, identifier)
}

// Allow records an attempt for identifier and reports whether it is within
// the limit. Rejected attempts are recorded too, so hammering keeps the
// window full.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.key(identifier)

	pipe := l.redis.Pipeline()
	now := l.now()
	windowStart := now.Add(-l.limit.Window).UnixMilli()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current window
	pipe.ZCard(ctx, key)

	// Add new entry; members must be unique or concurrent attempts collapse
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})

	// Set expiration
	pipe.Expire(ctx, key, l.limit.Window*2)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	count := results[1].(*redis.IntCmd).Val()
	return count < int64(l.limit.MaxAttempts), nil
}

// Reset forgets every attempt recorded for identifier.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}
