package xdlock_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xlock/pkg/distributed/xdlock"
)

// fuzzStore 为整个 fuzz 目标共享一个 miniredis 实例。
func fuzzStore(f *testing.F) (*miniredis.Miniredis, *xdlock.RedisStore) {
	f.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		f.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	store, err := xdlock.NewRedisStore(client)
	if err != nil {
		f.Fatalf("new store: %v", err)
	}
	return mr, store
}

// =============================================================================
// Key 校验
// =============================================================================

// FuzzNew 校验任意名称与前缀下的 key 规则。
func FuzzNew(f *testing.F) {
	_, store := fuzzStore(f)

	f.Add("orders", "")
	f.Add("orders", "lock:")
	f.Add("", "lock:")
	f.Add("   ", "")
	f.Add("\t\n", "p")
	f.Add("中文锁", "租户:")
	f.Add(strings.Repeat("k", 512), "")
	f.Add(strings.Repeat("k", 500), strings.Repeat("p", 13))

	f.Fuzz(func(t *testing.T, name, prefix string) {
		lock, err := xdlock.New(store, name, xdlock.WithKeyPrefix(prefix))

		switch {
		case strings.TrimSpace(name) == "":
			if !errors.Is(err, xdlock.ErrEmptyKey) {
				t.Fatalf("name %q: expected ErrEmptyKey, got %v", name, err)
			}
		case len(prefix)+len(name) > 512:
			if !errors.Is(err, xdlock.ErrKeyTooLong) {
				t.Fatalf("key length %d: expected ErrKeyTooLong, got %v", len(prefix)+len(name), err)
			}
		default:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if lock.Key() != prefix+name {
				t.Errorf("key = %q, want %q", lock.Key(), prefix+name)
			}
			if lock.Token() == "" {
				t.Error("token must not be empty")
			}
			if lock.IsAcquired() {
				t.Error("new lock must not be acquired")
			}
		}
	})
}

// =============================================================================
// 锁时长
// =============================================================================

// FuzzAcquireLockTime 校验任意锁时长下 Acquire/Release 的结果。
func FuzzAcquireLockTime(f *testing.F) {
	mr, store := fuzzStore(f)

	f.Add(int64(-1))
	f.Add(int64(0))
	f.Add(int64(time.Microsecond))
	f.Add(int64(time.Millisecond - 1))
	f.Add(int64(time.Millisecond))
	f.Add(int64(1500 * time.Microsecond))
	f.Add(int64(time.Second))
	f.Add(int64(time.Hour))

	f.Fuzz(func(t *testing.T, nanos int64) {
		if nanos > int64(24*time.Hour) {
			return
		}
		lockTime := time.Duration(nanos)
		mr.FlushAll()

		ctx := context.Background()
		lock, err := xdlock.New(store, "fuzz")
		if err != nil {
			t.Fatalf("new lock: %v", err)
		}

		ok, err := lock.Acquire(ctx, lockTime)
		if lockTime < xdlock.MinLockTime {
			if !errors.Is(err, xdlock.ErrInvalidArgument) || ok {
				t.Fatalf("lockTime %s: expected ErrInvalidArgument, got ok=%v err=%v", lockTime, ok, err)
			}
			if mr.Exists("fuzz") {
				t.Fatal("invalid lock time must not touch the store")
			}
			return
		}
		if err != nil || !ok {
			t.Fatalf("lockTime %s: acquire ok=%v err=%v", lockTime, ok, err)
		}

		ok, err = lock.Release(ctx)
		if err != nil || !ok {
			t.Fatalf("lockTime %s: release ok=%v err=%v", lockTime, ok, err)
		}
		if mr.Exists("fuzz") {
			t.Error("record must be deleted after release")
		}
	})
}
