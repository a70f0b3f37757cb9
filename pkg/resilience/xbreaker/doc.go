// Package xbreaker 基于 [sony/gobreaker/v2] 的熔断器封装。
//
// 熔断判定由 TripPolicy 抽象，默认连续失败 5 次触发熔断。
// 熔断器拒绝的调用返回 *BreakerError，其 Retryable() 为 false，
// 与 xretry 组合时不会被继续重试。
//
//	breaker := xbreaker.NewBreaker("lock-store",
//	    xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(3)),
//	    xbreaker.WithTimeout(10*time.Second),
//	)
//	val, err := xbreaker.Execute(ctx, breaker, func() (string, error) {
//	    return client.Get(ctx, key).Result()
//	})
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
