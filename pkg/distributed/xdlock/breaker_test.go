package xdlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xlock/pkg/resilience/xbreaker"
)

func TestNewBreakerStore(t *testing.T) {
	_, err := NewBreakerStore(nil, nil)
	assert.ErrorIs(t, err, ErrNilStore)

	s, err := NewBreakerStore(NewMockStore(gomock.NewController(t)), nil)
	require.NoError(t, err)
	assert.Equal(t, "xdlock", s.Breaker().Name())
}

func TestBreakerStore_Trips(t *testing.T) {
	ctx := context.Background()
	inner := NewMockStore(gomock.NewController(t))
	s, err := NewBreakerStore(inner, xbreaker.NewBreaker("test",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(3)),
		xbreaker.WithTimeout(time.Minute),
	))
	require.NoError(t, err)

	inner.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, errStore).Times(3)
	for range 3 {
		_, err := s.SetIfAbsent(ctx, "k", "tok", time.Second)
		assert.ErrorIs(t, err, errStore)
	}
	assert.Equal(t, xbreaker.StateOpen, s.Breaker().State())

	// 熔断打开后不再访问后端
	_, err = s.SetIfAbsent(ctx, "k", "tok", time.Second)
	assert.True(t, xbreaker.IsOpen(err))
	_, _, err = s.Get(ctx, "k")
	assert.True(t, xbreaker.IsBreakerError(err))
	_, err = s.DeleteIfEqual(ctx, "k", "tok")
	assert.True(t, xbreaker.IsOpen(err))
	_, err = s.ExpireIfEqual(ctx, "k", "tok", time.Second)
	assert.True(t, xbreaker.IsOpen(err))
	assert.True(t, xbreaker.IsOpen(s.Ping(ctx)))
}

func TestBreakerStore_ConditionFailureIsSuccess(t *testing.T) {
	ctx := context.Background()
	inner := NewMockStore(gomock.NewController(t))
	s, err := NewBreakerStore(inner, xbreaker.NewBreaker("test",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(1)),
	))
	require.NoError(t, err)

	inner.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, nil).Times(5)
	inner.EXPECT().Get(gomock.Any(), "k").Return("other", true, nil)
	inner.EXPECT().DeleteIfEqual(gomock.Any(), "k", "tok").Return(false, nil)
	inner.EXPECT().ExpireIfEqual(gomock.Any(), "k", "tok", time.Second).Return(false, nil)
	inner.EXPECT().Ping(gomock.Any()).Return(nil)

	for range 5 {
		ok, err := s.SetIfAbsent(ctx, "k", "tok", time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "other", v)
	ok, err = s.DeleteIfEqual(ctx, "k", "tok")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.ExpireIfEqual(ctx, "k", "tok", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Ping(ctx))

	assert.Equal(t, xbreaker.StateClosed, s.Breaker().State())
}

func TestBreakerStore_WithLock(t *testing.T) {
	ctx := context.Background()
	inner := NewMockStore(gomock.NewController(t))
	s, err := NewBreakerStore(inner, xbreaker.NewBreaker("test",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(1)),
		xbreaker.WithTimeout(time.Minute),
	))
	require.NoError(t, err)

	lock, err := New(s, "k", WithSuppressErrors(true),
		WithTokenGenerator(func() (string, error) { return "tok", nil }))
	require.NoError(t, err)

	inner.EXPECT().SetIfAbsent(gomock.Any(), "k", "tok", time.Second).Return(false, errStore)
	_, err = lock.Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, errStore)

	// 熔断错误属于存储错误，不受抑制
	_, err = lock.Acquire(ctx, time.Second)
	assert.True(t, xbreaker.IsOpen(err))
}
