package auth

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestMemoryAttemptStoreLocks(t *testing.T) {
	ctx := context.Background()
	policy := DefaultLimitPolicy()
	store := NewMemoryAttemptStore(policy)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 1; i < policy.MaxAttempts; i++ {
		remaining, err := store.RecordFailure(ctx, "ip")
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if remaining != policy.MaxAttempts-i {
			t.Fatalf("remaining = %d, want %d", remaining, policy.MaxAttempts-i)
		}
		if d, _ := store.LockedFor(ctx, "ip"); d != 0 {
			t.Fatalf("unexpected lock after %d failures", i)
		}
	}

	remaining, _ := store.RecordFailure(ctx, "ip")
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if d, _ := store.LockedFor(ctx, "ip"); d != policy.LockDuration {
		t.Fatalf("locked for %v, want %v", d, policy.LockDuration)
	}
	if d, _ := store.LockedFor(ctx, "other"); d != 0 {
		t.Fatal("lock must be per key")
	}

	now = now.Add(policy.LockDuration)
	if d, _ := store.LockedFor(ctx, "ip"); d != 0 {
		t.Fatalf("lock should expire, still %v", d)
	}
}

func TestMemoryAttemptStoreWindowAndReset(t *testing.T) {
	ctx := context.Background()
	policy := DefaultLimitPolicy()
	store := NewMemoryAttemptStore(policy)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _ = store.RecordFailure(ctx, "ip")
	_, _ = store.RecordFailure(ctx, "ip")

	now = now.Add(policy.Window + time.Second)
	remaining, _ := store.RecordFailure(ctx, "ip")
	if remaining != policy.MaxAttempts-1 {
		t.Fatalf("window should restart counting, remaining = %d", remaining)
	}

	if err := store.Reset(ctx, "ip"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	remaining, _ = store.RecordFailure(ctx, "ip")
	if remaining != policy.MaxAttempts-1 {
		t.Fatalf("Reset should clear counts, remaining = %d", remaining)
	}
}

func TestMemoryAttemptStorePrunesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	policy := LimitPolicy{MaxAttempts: 2, Window: time.Minute, LockDuration: 10 * time.Minute}
	store := NewMemoryAttemptStore(policy)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		_, _ = store.RecordFailure(ctx, fmt.Sprintf("10.0.0.%d", i))
	}
	_, _ = store.RecordFailure(ctx, "locked")
	_, _ = store.RecordFailure(ctx, "locked")

	now = now.Add(policy.Window + time.Second)
	_, _ = store.RecordFailure(ctx, "fresh")
	if len(store.attempts) != 2 {
		t.Fatalf("expected only locked and fresh entries, got %d", len(store.attempts))
	}
	if d, _ := store.LockedFor(ctx, "locked"); d <= 0 {
		t.Fatal("an active lock must survive the sweep")
	}

	now = now.Add(policy.LockDuration)
	if d, _ := store.LockedFor(ctx, "locked"); d != 0 {
		t.Fatalf("lock should expire, still %v", d)
	}
	if _, ok := store.attempts["locked"]; ok {
		t.Fatal("expired entry should be dropped on lookup")
	}
}

func TestRedisAttemptStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}
	ctx := context.Background()
	policy := LimitPolicy{MaxAttempts: 2, Window: time.Minute, LockDuration: time.Minute}
	store, err := NewRedisAttemptStoreFromURL(url, policy)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	defer store.Reset(ctx, key)

	if remaining, err := store.RecordFailure(ctx, key); err != nil || remaining != 1 {
		t.Fatalf("RecordFailure = %d, %v", remaining, err)
	}
	if remaining, err := store.RecordFailure(ctx, key); err != nil || remaining != 0 {
		t.Fatalf("RecordFailure = %d, %v", remaining, err)
	}
	if d, err := store.LockedFor(ctx, key); err != nil || d <= 0 {
		t.Fatalf("expected lock, got %v, %v", d, err)
	}
	if err := store.Reset(ctx, key); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if d, _ := store.LockedFor(ctx, key); d != 0 {
		t.Fatalf("lock should be cleared, got %v", d)
	}
}

func TestNewRedisAttemptStoreFromURLInvalid(t *testing.T) {
	if _, err := NewRedisAttemptStoreFromURL("://bad", DefaultLimitPolicy()); err == nil {
		t.Fatal("expected parse error")
	}
}
