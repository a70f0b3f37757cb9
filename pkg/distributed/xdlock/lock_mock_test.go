package xdlock

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xlock/pkg/observability/xlog"
	"github.com/omeyang/xlock/pkg/resilience/xretry"
)

var errStore = errors.New("connection refused")

// newMockLock 创建绑定 MockStore 的锁，token 固定为 "tok"。
func newMockLock(t *testing.T, opts ...Option) (*Lock, *MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)

	opts = append([]Option{
		WithTokenGenerator(func() (string, error) { return "tok", nil }),
		WithRenewRetryer(xretry.NewRetryer(
			xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
			xretry.WithBackoffPolicy(xretry.NewNoBackoff()),
		)),
	}, opts...)
	lock, err := New(store, "k", opts...)
	require.NoError(t, err)
	return lock, store
}

// acquireMock 让锁进入已持有状态。
func acquireMock(t *testing.T, lock *Lock, store *MockStore) {
	t.Helper()
	store.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(true, nil)
	ok, err := lock.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLock_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("AcquireNotSuppressed", func(t *testing.T) {
		lock, store := newMockLock(t, WithSuppressErrors(true))
		store.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, errStore)

		ok, err := lock.Acquire(ctx, time.Second, WithWaitTime(time.Second))
		assert.False(t, ok)
		assert.ErrorIs(t, err, errStore)
		assert.False(t, lock.IsAcquired())
	})

	t.Run("ReleaseClearsState", func(t *testing.T) {
		lock, store := newMockLock(t)
		acquireMock(t, lock, store)
		store.EXPECT().DeleteIfEqual(gomock.Any(), "k", "tok").Return(false, errStore)

		_, err := lock.Release(ctx)
		assert.ErrorIs(t, err, errStore)
		assert.False(t, lock.IsAcquired())
	})

	t.Run("UpdateKeepsState", func(t *testing.T) {
		lock, store := newMockLock(t)
		acquireMock(t, lock, store)
		store.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", 2*time.Second).Return(false, errStore)

		_, err := lock.Update(ctx, 2*time.Second)
		assert.ErrorIs(t, err, errStore)
		assert.True(t, lock.IsAcquired())
		assert.Equal(t, time.Second, lock.TTL())
	})

	t.Run("IsLocked", func(t *testing.T) {
		lock, store := newMockLock(t)
		acquireMock(t, lock, store)
		store.EXPECT().Get(gomock.Any(), "k").Return("", false, errStore)

		_, err := lock.IsLocked(ctx)
		assert.ErrorIs(t, err, errStore)
		assert.True(t, lock.IsAcquired())
	})

	t.Run("IsExists", func(t *testing.T) {
		lock, store := newMockLock(t)
		store.EXPECT().Get(gomock.Any(), "k").Return("", false, errStore)

		ok, err := lock.IsExists(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, errStore)
	})

	t.Run("CloseReturnsStoreError", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := xlog.New().SetOutput(&buf).Build()
		require.NoError(t, err)

		lock, store := newMockLock(t, WithLogger(logger))
		acquireMock(t, lock, store)
		store.EXPECT().DeleteIfEqual(gomock.Any(), "k", "tok").Return(false, errStore)

		assert.ErrorIs(t, lock.Close(ctx), errStore)
		assert.Contains(t, buf.String(), "release on close failed")
		assert.Contains(t, buf.String(), "lock_key=k")
	})
}

func TestLock_AcquireAttemptsOnceWithoutWait(t *testing.T) {
	lock, store := newMockLock(t)
	store.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, nil).Times(1)

	ok, err := lock.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLock_AcquirePollsUntilFree(t *testing.T) {
	lock, store := newMockLock(t)
	gomock.InOrder(
		store.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, nil).Times(2),
		store.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(true, nil),
	)

	ok, err := lock.Acquire(context.Background(), time.Second,
		WithWaitTime(time.Second), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_KeepAliveRetriesStoreErrors(t *testing.T) {
	t.Run("Recovers", func(t *testing.T) {
		lock, store := newMockLock(t)
		acquireMock(t, lock, store)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		gomock.InOrder(
			store.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", time.Second).Return(false, errStore),
			store.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", time.Second).DoAndReturn(
				func(context.Context, string, string, time.Duration) (bool, error) {
					cancel()
					return true, nil
				}),
		)

		assert.NoError(t, lock.KeepAlive(ctx, time.Second, time.Millisecond))
		assert.True(t, lock.IsAcquired())
	})

	t.Run("Exhausted", func(t *testing.T) {
		lock, store := newMockLock(t, WithSuppressErrors(true))
		acquireMock(t, lock, store)
		store.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", time.Second).Return(false, errStore).Times(3)

		err := lock.KeepAlive(context.Background(), time.Second, time.Millisecond)
		assert.ErrorIs(t, err, errStore)
		assert.True(t, lock.IsAcquired(), "存储错误不改变持有状态")
	})

	t.Run("LostLockNotRetried", func(t *testing.T) {
		lock, store := newMockLock(t)
		acquireMock(t, lock, store)
		store.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", time.Second).Return(false, nil).Times(1)

		err := lock.KeepAlive(context.Background(), time.Second, time.Millisecond)
		assert.ErrorIs(t, err, ErrLostLock)
	})
}

func TestLock_HolderAndTokenGenerator(t *testing.T) {
	lock, store := newMockLock(t)
	assert.Equal(t, "tok", lock.Token())

	store.EXPECT().Get(gomock.Any(), "k").Return("someone", true, nil)
	holder, ok, err := lock.Holder(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "someone", holder)
}

func TestIsLockError(t *testing.T) {
	for _, err := range []error{ErrInvalidArgument, ErrAlreadyAcquired, ErrNotAcquired, ErrLostLock} {
		assert.True(t, isLockError(err))
		assert.True(t, isLockError(xretry.Unrecoverable(err)))
	}
	assert.False(t, isLockError(errStore))
	assert.False(t, isLockError(nil))
	assert.Nil(t, storeError("get", nil))
	assert.ErrorIs(t, storeError("get", errStore), errStore)
}
