package auth

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/todo-api/internal/config"
)

// LoginLimiter はクライアントごとのログイン失敗回数を管理します。
type LoginLimiter interface {
	// Check はロック中であれば残りのロック時間を返します。ロックされていなければ 0 です。
	Check(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を1回記録し、上限に達したらロックします。
	RecordFailure(ctx context.Context, key string) error
	// Reset は記録をすべて消します。
	Reset(ctx context.Context, key string) error
}

// LimiterPolicy は試行回数制限の設定です。
type LimiterPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// PolicyFromConfig は設定から LimiterPolicy を組み立てます。
func PolicyFromConfig(cfg *config.Config) LimiterPolicy {
	return LimiterPolicy{
		MaxAttempts:  cfg.LoginMaxAttempts,
		Window:       cfg.LoginWindow,
		LockDuration: cfg.LoginLockDuration,
	}
}

// NewLimiter は設定に応じた LoginLimiter を返します。
// LOGIN_MAX_ATTEMPTS が 0 以下なら nil（制限なし）、rdb があれば Redis、なければメモリ上で管理します。
func NewLimiter(cfg *config.Config, rdb *redis.Client) LoginLimiter {
	policy := PolicyFromConfig(cfg)
	if policy.MaxAttempts <= 0 {
		return nil
	}
	if rdb != nil {
		return NewRedisLimiter(rdb, policy)
	}
	return NewMemoryLimiter(policy)
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryLimiter はプロセス内のマップで試行回数を管理します。
type MemoryLimiter struct {
	policy   LimiterPolicy
	now      func() time.Time
	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter(policy LimiterPolicy) *MemoryLimiter {
	return &MemoryLimiter{
		policy:   policy,
		now:      time.Now,
		attempts: make(map[string]*attemptState),
	}
}

// Check はロック中であれば残り時間を返します。
func (l *MemoryLimiter) Check(_ context.Context, key string) (time.Duration, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[key]
	if !ok {
		return 0, nil
	}
	now := l.now()
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

// RecordFailure は失敗を記録します。
func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	state, ok := l.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > l.policy.Window {
		state = &attemptState{firstAttempt: now}
		l.attempts[key] = state
	}

	state.count++
	if state.count >= l.policy.MaxAttempts {
		state.lockedUntil = now.Add(l.policy.LockDuration)
		state.count = l.policy.MaxAttempts
	}
	return nil
}

// Reset は記録を削除します。
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, key)
	return nil
}
