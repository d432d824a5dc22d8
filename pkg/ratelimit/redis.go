package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter keeps one sorted set per key, scored by attempt time in
// milliseconds. Keys expire one window after their newest attempt.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
	now    func() time.Time
}

// NewRedisLimiter returns a limiter backed by client. A nil now uses time.Now.
func NewRedisLimiter(client redis.UniversalClient, cfg Config, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, cfg: cfg.withDefaults(), now: now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := redisKeyPrefix + key
	now := l.now()
	nowMs := now.UnixMilli()
	cutoffMs := nowMs - l.cfg.Window.Milliseconds()
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoffMs, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMs), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to record attempt for %s: %w", key, err)
	}

	if int(count.Val()) <= l.cfg.MaxAttempts {
		return Decision{Allowed: true, Remaining: l.cfg.MaxAttempts - int(count.Val())}, nil
	}

	// Over the limit: take the attempt back out so it does not count.
	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return Decision{}, fmt.Errorf("failed to roll back attempt for %s: %w", key, err)
	}

	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read oldest attempt for %s: %w", key, err)
	}
	retryAfter := l.cfg.Window
	if len(oldest) == 1 {
		retryAfter = time.Duration(int64(oldest[0].Score)+l.cfg.Window.Milliseconds()-nowMs) * time.Millisecond
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
