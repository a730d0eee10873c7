package auth

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const (
	attemptsKeyPrefix = "login:attempts:"
	lockKeyPrefix     = "login:lock:"
)

// RedisLimiter は Redis 上で試行回数を管理します。複数プロセスで状態を共有できます。
type RedisLimiter struct {
	rdb    *redis.Client
	policy LimiterPolicy
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(rdb *redis.Client, policy LimiterPolicy) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policy: policy}
}

// Check はロックキーの残り TTL を返します。
func (l *RedisLimiter) Check(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return 0, oops.In("auth").Code("AUTH_LIMITER_FAILED").Wrap(err)
	}
	// キーが存在しない場合は負の値が返る
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordFailure は失敗回数を加算し、上限に達したらロックキーを作成します。
func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	attemptsKey := attemptsKeyPrefix + key

	count, err := l.rdb.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return oops.In("auth").Code("AUTH_LIMITER_FAILED").Wrap(err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, attemptsKey, l.policy.Window).Err(); err != nil {
			return oops.In("auth").Code("AUTH_LIMITER_FAILED").Wrap(err)
		}
	}

	if count < int64(l.policy.MaxAttempts) {
		return nil
	}

	tx := l.rdb.TxPipeline()
	tx.Set(ctx, lockKeyPrefix+key, count, l.policy.LockDuration)
	tx.Del(ctx, attemptsKey)
	if _, err := tx.Exec(ctx); err != nil {
		return oops.In("auth").Code("AUTH_LIMITER_FAILED").Wrap(err)
	}
	return nil
}

// Reset は失敗回数とロックを削除します。
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, attemptsKeyPrefix+key, lockKeyPrefix+key).Err(); err != nil {
		return oops.In("auth").Code("AUTH_LIMITER_FAILED").Wrap(err)
	}
	return nil
}
