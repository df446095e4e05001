package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitPolicy はログイン失敗の許容回数とロック時間です。
type LimitPolicy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultLimitPolicy は 15 分間に 5 回失敗すると 10 分ロックします。
func DefaultLimitPolicy() LimitPolicy {
	return LimitPolicy{
		MaxAttempts:  5,
		Window:       15 * time.Minute,
		LockDuration: 10 * time.Minute,
	}
}

// AttemptStore はクライアントごとのログイン失敗回数を保持します。
type AttemptStore interface {
	// LockedFor はロック中であれば残り時間を返します。
	LockedFor(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を1回記録し、ロックまでの残り回数を返します。
	RecordFailure(ctx context.Context, key string) (int, error)
	// Reset は記録を消去します。
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryAttemptStore はプロセス内で失敗回数を保持します。
type MemoryAttemptStore struct {
	policy    LimitPolicy
	lock      sync.Mutex
	attempts  map[string]*attemptState
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryAttemptStore は MemoryAttemptStore を作成します。
func NewMemoryAttemptStore(policy LimitPolicy) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		policy:   policy,
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

func (s *MemoryAttemptStore) LockedFor(_ context.Context, key string) (time.Duration, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state, ok := s.attempts[key]
	if !ok {
		return 0, nil
	}
	now := s.now()
	if s.expired(state, now) {
		delete(s.attempts, key)
		return 0, nil
	}
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

func (s *MemoryAttemptStore) RecordFailure(_ context.Context, key string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	s.sweep(now)

	state, ok := s.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > s.policy.Window {
		state = &attemptState{firstAttempt: now}
		s.attempts[key] = state
	}

	state.count++
	if state.count >= s.policy.MaxAttempts {
		state.lockedUntil = now.Add(s.policy.LockDuration)
		state.count = s.policy.MaxAttempts
	}

	return max(s.policy.MaxAttempts-state.count, 0), nil
}

// expired は集計期間とロックの両方が終わっているかを返します。
func (s *MemoryAttemptStore) expired(state *attemptState, now time.Time) bool {
	return now.Sub(state.firstAttempt) > s.policy.Window && !now.Before(state.lockedUntil)
}

// sweep は期限切れの記録を削除します。全件走査は集計期間に1回までに抑えます。
func (s *MemoryAttemptStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.policy.Window {
		return
	}
	s.lastSweep = now
	for key, state := range s.attempts {
		if s.expired(state, now) {
			delete(s.attempts, key)
		}
	}
}

func (s *MemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.attempts, key)
	return nil
}

const (
	attemptKeyPrefix = "login:attempts:"
	lockKeyPrefix    = "login:lock:"
)

// RedisAttemptStore は複数プロセスで失敗回数を共有するための Redis 実装です。
type RedisAttemptStore struct {
	rdb    *redis.Client
	policy LimitPolicy
}

// NewRedisAttemptStore は RedisAttemptStore を作成します。
func NewRedisAttemptStore(rdb *redis.Client, policy LimitPolicy) *RedisAttemptStore {
	return &RedisAttemptStore{rdb: rdb, policy: policy}
}

// NewRedisAttemptStoreFromURL は redis:// 形式の URL から接続を作成します。
func NewRedisAttemptStoreFromURL(rawURL string, policy LimitPolicy) (*RedisAttemptStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisAttemptStore(redis.NewClient(opt), policy), nil
}

func (s *RedisAttemptStore) LockedFor(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	// キーが無い場合は負の値が返る
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisAttemptStore) RecordFailure(ctx context.Context, key string) (int, error) {
	attemptKey := attemptKeyPrefix + key
	count, err := s.rdb.Incr(ctx, attemptKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, attemptKey, s.policy.Window).Err(); err != nil {
			return 0, err
		}
	}

	if int(count) >= s.policy.MaxAttempts {
		pipe := s.rdb.TxPipeline()
		pipe.Set(ctx, lockKeyPrefix+key, "1", s.policy.LockDuration)
		pipe.Del(ctx, attemptKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return s.policy.MaxAttempts - int(count), nil
}

func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, attemptKeyPrefix+key, lockKeyPrefix+key).Err()
}

// Close は Redis 接続を閉じます。
func (s *RedisAttemptStore) Close() error {
	return s.rdb.Close()
}
