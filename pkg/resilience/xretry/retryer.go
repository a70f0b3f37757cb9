package xretry

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

var _ Executor = (*Retryer)(nil)

// Retryer 组合 RetryPolicy 与 BackoffPolicy 的重试执行器。
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
}

// RetryerOption 执行器配置选项
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoffPolicy = p
		}
	}
}

// WithOnRetry 设置重试回调，attempt 从 1 开始。nil 被忽略。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 创建重试执行器，默认 FixedRetry(3) 与 ExponentialBackoff。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		retryPolicy:   NewFixedRetry(3),
		backoffPolicy: NewExponentialBackoff(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do 执行带重试的操作，返回最后一次的错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil {
		return ErrNilRetryer
	}
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.buildOptions(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// DoWithResult 执行带重试的操作（有返回值）。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	switch {
	case r == nil:
		return zero, ErrNilRetryer
	case ctx == nil:
		return zero, ErrNilContext
	case fn == nil:
		return zero, ErrNilFunc
	}
	return retry.NewWithData[T](r.buildOptions(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	retryPolicy := r.retryPolicy
	if retryPolicy == nil {
		retryPolicy = NewFixedRetry(3)
	}
	backoffPolicy := r.backoffPolicy
	if backoffPolicy == nil {
		backoffPolicy = NewExponentialBackoff()
	}

	opts := make([]retry.Option, 0, 6)
	opts = append(opts, retry.Context(ctx))

	if n := retryPolicy.MaxAttempts(); n <= 0 {
		opts = append(opts, retry.UntilSucceeded())
	} else {
		opts = append(opts, retry.Attempts(uint(n)))
	}

	// attempts 为已失败次数（从 1 开始），与 ShouldRetry 的 attempt 一致。
	var attempts atomic.Int64
	opts = append(opts, retry.RetryIf(func(err error) bool {
		count := int(attempts.Add(1))
		if !retry.IsRecoverable(err) {
			return false
		}
		return retryPolicy.ShouldRetry(ctx, count, err)
	}))

	// retry-go v5 的 DelayType n 从 1 开始。
	opts = append(opts, retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
		return backoffPolicy.NextDelay(toInt(n))
	}))

	if r.onRetry != nil {
		// OnRetry 的 n 从 0 开始。
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(toInt(n)+1, err)
		}))
	}

	return append(opts, retry.LastErrorOnly(true))
}

// RetryPolicy 返回当前重试策略，nil 接收者返回 nil。
func (r *Retryer) RetryPolicy() RetryPolicy {
	if r == nil {
		return nil
	}
	return r.retryPolicy
}

// BackoffPolicy 返回当前退避策略，nil 接收者返回 nil。
func (r *Retryer) BackoffPolicy() BackoffPolicy {
	if r == nil {
		return nil
	}
	return r.backoffPolicy
}

func toInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
