package xdlock

import (
	"context"
	"time"

	"github.com/omeyang/xlock/pkg/resilience/xbreaker"
)

var _ Store = (*BreakerStore)(nil)

// BreakerStore 为任意 Store 加上熔断保护。
//
// 存储持续失败时熔断器打开，后续调用立即返回 *xbreaker.BreakerError，
// 不再访问后端。条件不满足（SetIfAbsent 返回 false 等）不计为失败。
//
//	breaker := xbreaker.NewBreaker("xdlock-redis",
//	    xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(3)),
//	)
//	store, err := xdlock.NewBreakerStore(redisStore, breaker)
type BreakerStore struct {
	store   Store
	breaker *xbreaker.Breaker
}

// NewBreakerStore 创建带熔断的存储。breaker 为 nil 时使用默认配置。
func NewBreakerStore(store Store, breaker *xbreaker.Breaker) (*BreakerStore, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if breaker == nil {
		breaker = xbreaker.NewBreaker("xdlock")
	}
	return &BreakerStore{store: store, breaker: breaker}, nil
}

// Breaker 返回底层熔断器。
func (s *BreakerStore) Breaker() *xbreaker.Breaker {
	return s.breaker
}

// SetIfAbsent 实现 Store。
func (s *BreakerStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return xbreaker.Execute(ctx, s.breaker, func() (bool, error) {
		return s.store.SetIfAbsent(ctx, key, token, ttl)
	})
}

type getResult struct {
	value string
	ok    bool
}

// Get 实现 Store。
func (s *BreakerStore) Get(ctx context.Context, key string) (string, bool, error) {
	r, err := xbreaker.Execute(ctx, s.breaker, func() (getResult, error) {
		v, ok, err := s.store.Get(ctx, key)
		return getResult{value: v, ok: ok}, err
	})
	return r.value, r.ok, err
}

// DeleteIfEqual 实现 Store。
func (s *BreakerStore) DeleteIfEqual(ctx context.Context, key, token string) (bool, error) {
	return xbreaker.Execute(ctx, s.breaker, func() (bool, error) {
		return s.store.DeleteIfEqual(ctx, key, token)
	})
}

// ExpireIfEqual 实现 Store。
func (s *BreakerStore) ExpireIfEqual(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return xbreaker.Execute(ctx, s.breaker, func() (bool, error) {
		return s.store.ExpireIfEqual(ctx, key, token, ttl)
	})
}

// Ping 实现 Store。
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.breaker.Do(ctx, func() error {
		return s.store.Ping(ctx)
	})
}
