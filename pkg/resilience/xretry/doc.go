// Package xretry 提供重试策略与退避策略，底层使用 [avast/retry-go/v5]。
//
// RetryPolicy 决定是否继续重试，BackoffPolicy 决定两次尝试之间的间隔，
// Retryer 组合二者执行操作：
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
//	    xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
//	        xretry.WithInitialDelay(50*time.Millisecond),
//	    )),
//	)
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//
// 返回 [Unrecoverable] 包装的错误或 [PermanentError] 会立即结束重试。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
